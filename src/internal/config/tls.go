// FILE: src/internal/config/tls.go
package config

import (
	"fmt"
	"os"
)

// TLSClientConfig tunes TLS for the collector connection.
type TLSClientConfig struct {
	Enabled bool `toml:"enabled"`

	// CA file to trust a private collector certificate
	ServerCAFile string `toml:"server_ca_file"`

	// Client certificate for mTLS
	ClientCertFile string `toml:"client_cert_file"`
	ClientKeyFile  string `toml:"client_key_file"`

	// Override for SNI and certificate verification
	ServerName string `toml:"server_name"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify"`

	// TLS version constraints
	MinVersion string `toml:"min_version"` // "TLS1.2", "TLS1.3"
	MaxVersion string `toml:"max_version"`

	// Cipher suites (comma-separated list)
	CipherSuites string `toml:"cipher_suites"`
}

// TLSServerConfig enables TLS on the HTTP ingest source.
type TLSServerConfig struct {
	Enabled  bool   `toml:"enabled"`
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`

	// Require and verify client certificates against ClientCAFile
	ClientAuth   bool   `toml:"client_auth"`
	ClientCAFile string `toml:"client_ca_file"`

	MinVersion   string `toml:"min_version"`
	MaxVersion   string `toml:"max_version"`
	CipherSuites string `toml:"cipher_suites"`
}

func validateTLSServer(cfg *TLSServerConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return fmt.Errorf("http_source.tls: TLS enabled but cert/key files not specified")
	}
	if _, err := os.Stat(cfg.CertFile); err != nil {
		return fmt.Errorf("http_source.tls: cert_file is not accessible: %w", err)
	}
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return fmt.Errorf("http_source.tls: key_file is not accessible: %w", err)
	}

	if cfg.ClientAuth {
		if cfg.ClientCAFile == "" {
			return fmt.Errorf("http_source.tls: client auth enabled but CA file not specified")
		}
		if _, err := os.Stat(cfg.ClientCAFile); err != nil {
			return fmt.Errorf("http_source.tls: client_ca_file is not accessible: %w", err)
		}
	}

	return validateTLSVersions("http_source.tls", cfg.MinVersion, cfg.MaxVersion)
}

func validateTLSVersions(section, minVer, maxVer string) error {
	validVersions := map[string]bool{"": true, "TLS1.0": true, "TLS1.1": true, "TLS1.2": true, "TLS1.3": true}
	if !validVersions[minVer] {
		return fmt.Errorf("%s: invalid min TLS version: %s", section, minVer)
	}
	if !validVersions[maxVer] {
		return fmt.Errorf("%s: invalid max TLS version: %s", section, maxVer)
	}
	return nil
}

func validateTLSClient(cfg *TLSClientConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if (cfg.ClientCertFile == "") != (cfg.ClientKeyFile == "") {
		return fmt.Errorf("segment.tls: both client_cert_file and client_key_file must be set for mTLS")
	}

	for name, path := range map[string]string{
		"server_ca_file":   cfg.ServerCAFile,
		"client_cert_file": cfg.ClientCertFile,
		"client_key_file":  cfg.ClientKeyFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("segment.tls: %s is not accessible: %w", name, err)
		}
	}

	return validateTLSVersions("segment.tls", cfg.MinVersion, cfg.MaxVersion)
}
