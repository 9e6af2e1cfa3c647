// FILE: src/cmd/segbridge/flags.go
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/lixenwraith/log"
)

// Flags shared by run and serve
type commonFlags struct {
	configFile string
	quiet      bool
	logLevel   string
	logOutput  string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configFile, "c", "", "Config file path")
	fs.StringVar(&f.configFile, "config", "", "Config file path")
	fs.BoolVar(&f.quiet, "q", false, "Suppress all console output")
	fs.BoolVar(&f.quiet, "quiet", false, "Suppress all console output")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&f.logOutput, "log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	return f
}

func (f *commonFlags) validate() error {
	if f.logOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[f.logOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", f.logOutput)
		}
	}

	if f.logLevel != "" {
		if _, err := parseLogLevel(f.logLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", f.logLevel)
		}
	}

	return nil
}

// splitConfigArgs separates dotted configuration overrides such as
// --segment.write_key=abc or --batch.max_payload_bytes 1024 from command
// flags, preserving order within each group.
func splitConfigArgs(args []string) (configArgs, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i:]...)
			break
		}

		key, hasValue := strings.CutPrefix(arg, "--")
		if !hasValue {
			rest = append(rest, arg)
			continue
		}
		name, _, inline := strings.Cut(key, "=")
		if !strings.Contains(name, ".") {
			rest = append(rest, arg)
			continue
		}

		configArgs = append(configArgs, arg)
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			configArgs = append(configArgs, args[i+1])
			i++
		}
	}
	return configArgs, rest
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
