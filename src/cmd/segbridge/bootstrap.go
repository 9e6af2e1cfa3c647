// FILE: src/cmd/segbridge/bootstrap.go
package main

import (
	"fmt"
	"os"
	"strings"

	"segbridge/src/internal/config"
	"segbridge/src/internal/version"

	"github.com/lixenwraith/log"
)

// loadConfig applies the config file flag, loads every source and lays the
// logging flags over the result.
func loadConfig(flags *commonFlags, configArgs []string) (*config.Config, error) {
	if err := flags.validate(); err != nil {
		return nil, err
	}

	if flags.configFile != "" {
		if _, err := os.Stat(flags.configFile); err != nil {
			return nil, fmt.Errorf("config file not found: %s", flags.configFile)
		}
		os.Setenv("SEGBRIDGE_CONFIG_FILE", flags.configFile)
	}

	cfg, err := config.LoadWithCLI(configArgs)
	if err != nil {
		return nil, err
	}

	if flags.quiet {
		cfg.Quiet = true
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logOutput != "" {
		cfg.Logging.Output = flags.logOutput
	}

	output.SetQuiet(cfg.Quiet)
	return cfg, nil
}

// initializeLogger sets up the global logger from configuration
func initializeLogger(cfg *config.Config) error {
	configArgs, err := loggerArgs(cfg)
	if err != nil {
		return err
	}

	logger = log.NewLogger()
	if err := logger.InitWithDefaults(configArgs...); err != nil {
		return err
	}

	logger.Info("msg", "segbridge starting",
		"version", version.Short(),
		"config_file", config.GetConfigPath(),
		"log_output", cfg.Logging.Output)
	return nil
}

// loggerArgs translates logging configuration into logger settings
func loggerArgs(cfg *config.Config) ([]string, error) {
	var configArgs []string

	if cfg.Quiet {
		// In quiet mode, disable ALL logging output
		return append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255"), nil
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, cfg)
		configureConsoleTarget(&configArgs, cfg)

	default:
		return nil, fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	return configArgs, nil
}

// configureFileLogging sets up file-based logging parameters
func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
			fmt.Sprintf("name=%s", cfg.Logging.File.Name),
			fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
			fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))

		if cfg.Logging.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
		}
	}
}

// configureConsoleTarget sets up console output parameters
func configureConsoleTarget(configArgs *[]string, cfg *config.Config) {
	target := "stderr"

	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}

	if strings.EqualFold(target, "split") {
		*configArgs = append(*configArgs, "stdout_split_mode=true", "stdout_target=split")
	} else {
		*configArgs = append(*configArgs, fmt.Sprintf("stdout_target=%s", target))
	}
}
