// FILE: src/cmd/segbridge/commands/version.go
package commands

import (
	"fmt"
	"io"
	"os"

	"segbridge/src/internal/version"
)

// VersionCommand handles version display
type VersionCommand struct {
	output io.Writer
}

// NewVersionCommand creates a new version command
func NewVersionCommand() *VersionCommand {
	return &VersionCommand{output: os.Stdout}
}

func (c *VersionCommand) Execute(args []string) error {
	if len(args) > 0 && (args[0] == "-s" || args[0] == "--short") {
		fmt.Fprintln(c.output, version.Short())
		return nil
	}
	fmt.Fprintln(c.output, version.String())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show segbridge version information

Usage:
  segbridge version [-s|--short]

Output includes:
  - Version number
  - Build date
  - Git commit hash (if available)
  - Go version used for compilation
`
}
