// FILE: src/cmd/segbridge/main.go
package main

import (
	"os"
	"time"

	"segbridge/src/cmd/segbridge/commands"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	InitOutputHandler(false)

	router := commands.NewCommandRouter()
	router.Register("run", newRunCommand())
	router.Register("serve", newServeCommand())
	router.Register("config", newConfigCommand())

	handled, err := router.Route(os.Args)
	if err != nil {
		FatalError(1, "Error: %v\n", err)
	}
	if !handled {
		help, _ := router.GetCommand("help")
		help.Execute(nil)
		os.Exit(2)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
