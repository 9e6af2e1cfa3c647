// FILE: src/internal/config/logging.go
package config

import (
	"fmt"
	"slices"
	"strings"
)

// Logging modes. "both" writes to the file and to the console target.
var (
	logOutputs     = []string{"file", "stdout", "stderr", "both", "none"}
	logLevels      = []string{"debug", "info", "warn", "warning", "error"}
	consoleTargets = []string{"", "stdout", "stderr", "split"}
	consoleFormats = []string{"", "txt", "json"}
)

// LogConfig controls segbridge's own diagnostics, never the event output.
type LogConfig struct {
	Output  string            `toml:"output"`
	Level   string            `toml:"level"`
	File    *LogFileConfig    `toml:"file"`
	Console *LogConsoleConfig `toml:"console"`
}

// LogFileConfig sizes are in MB; zero retention keeps files forever.
type LogFileConfig struct {
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"`
}

// LogConsoleConfig target "split" sends warn and error to stderr and the
// rest to stdout.
type LogConsoleConfig struct {
	Target string `toml:"target"`
	Format string `toml:"format"`
}

func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "stderr",
		Level:  "info",
		File: &LogFileConfig{
			Directory:      "./log",
			Name:           "segbridge",
			MaxSizeMB:      100,
			MaxTotalSizeMB: 1000,
			RetentionHours: 7 * 24,
		},
		Console: &LogConsoleConfig{
			Target: "stderr",
			Format: "txt",
		},
	}
}

// WritesFile reports whether log records reach the log directory.
func (c *LogConfig) WritesFile() bool {
	return c.Output == "file" || c.Output == "both"
}

// WritesStdout reports whether any log record can land on stdout.
func (c *LogConfig) WritesStdout() bool {
	switch c.Output {
	case "stdout":
		return true
	case "both":
		return c.Console != nil && (c.Console.Target == "stdout" || c.Console.Target == "split")
	}
	return false
}

// ReserveStdout moves console logging off stdout so that stdout carries
// only command output such as the run summary or dry-run calls. It reports
// whether anything changed.
func (c *LogConfig) ReserveStdout() bool {
	if !c.WritesStdout() {
		return false
	}
	if c.Output == "stdout" {
		c.Output = "stderr"
	}
	if c.Console != nil {
		c.Console.Target = "stderr"
	}
	return true
}

func validateLogConfig(cfg *LogConfig) error {
	if cfg == nil {
		return fmt.Errorf("[logging] section missing")
	}

	if !slices.Contains(logOutputs, cfg.Output) {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}
	if !slices.Contains(logLevels, strings.ToLower(cfg.Level)) {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		if !slices.Contains(consoleTargets, cfg.Console.Target) {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}
		if !slices.Contains(consoleFormats, cfg.Console.Format) {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	if !cfg.WritesFile() {
		return nil
	}
	if cfg.File == nil {
		return fmt.Errorf("log output %s requires a [logging.file] section", cfg.Output)
	}
	if cfg.File.Directory == "" {
		return fmt.Errorf("log output %s requires logging.file.directory", cfg.Output)
	}
	if cfg.File.Name == "" || strings.ContainsAny(cfg.File.Name, `/\`) {
		return fmt.Errorf("invalid log file name %q", cfg.File.Name)
	}
	if cfg.File.MaxSizeMB < 0 || cfg.File.MaxTotalSizeMB < 0 || cfg.File.RetentionHours < 0 {
		return fmt.Errorf("log file limits cannot be negative")
	}
	return nil
}
