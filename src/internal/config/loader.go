// FILE: src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"segbridge/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Segment: SegmentConfig{
			Endpoint:       core.DefaultEndpoint,
			TimeoutSeconds: 30,
			MaxConcurrency: 0,
			Burst:          1,
		},
		Batch: BatchConfig{
			MaxPayloadBytes: core.DefaultMaxPayloadBytes,
		},
		Mapping: MappingConfig{
			MessageID: "request_id",
		},
		Output: OutputConfig{
			Format: "json",
		},
		HTTPSource: HTTPSourceConfig{
			Enabled:            false,
			Host:               "0.0.0.0",
			Port:               8088,
			IngestPath:         "/ingest",
			MaxRequestBodySize: 10 * 1024 * 1024,
			ReadTimeout:        5000,
			WriteTimeout:       5000,
		},
		TCPSource: TCPSourceConfig{
			Enabled:         false,
			Host:            "0.0.0.0",
			Port:            9099,
			FlushRecords:    1000,
			FlushIntervalMs: 1000,
			MaxLineBytes:    10 * 1024 * 1024,
		},
		Auth: &AuthConfig{
			Type: "none",
		},
	}
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return defaults()
}

// LoadWithCLI loads configuration from defaults, file, environment and CLI
// arguments, highest precedence last.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("SEGBRIDGE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		// Missing config file is fine
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, validateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "SEGBRIDGE_" + env
	return env
}

// GetConfigPath resolves the config file from SEGBRIDGE_CONFIG_FILE and
// SEGBRIDGE_CONFIG_DIR, falling back to ~/.config/segbridge.toml.
func GetConfigPath() string {
	if configFile := os.Getenv("SEGBRIDGE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("SEGBRIDGE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("SEGBRIDGE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "segbridge.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "segbridge.toml")
	}

	return "segbridge.toml"
}
