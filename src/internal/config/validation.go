// FILE: src/internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"

	"segbridge/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

// validateConfig is the centralized validator for the entire configuration.
// It also fills in defaults for zero values.
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateSegment(&cfg.Segment); err != nil {
		return err
	}

	if cfg.Batch.MaxPayloadBytes == 0 {
		cfg.Batch.MaxPayloadBytes = core.DefaultMaxPayloadBytes
	}
	if cfg.Batch.MaxPayloadBytes <= int64(core.BatchReserve)+1 {
		return fmt.Errorf("batch: max_payload_bytes %d cannot hold the batch envelope", cfg.Batch.MaxPayloadBytes)
	}

	switch cfg.Mapping.MessageID {
	case "", "request_id", "hash", "uuid", "source_hash":
	default:
		return fmt.Errorf("mapping: invalid message_id strategy: %s", cfg.Mapping.MessageID)
	}

	switch cfg.Output.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("output: invalid format: %s", cfg.Output.Format)
	}

	for i := range cfg.Filters {
		if err := validateFilter(i, &cfg.Filters[i]); err != nil {
			return err
		}
	}

	if cfg.HTTPSource.Enabled {
		if err := validateHTTPSource(&cfg.HTTPSource); err != nil {
			return err
		}
	}

	if cfg.TCPSource.Enabled {
		if err := validateTCPSource(&cfg.TCPSource); err != nil {
			return err
		}
		if cfg.HTTPSource.Enabled && cfg.HTTPSource.Port == cfg.TCPSource.Port {
			return fmt.Errorf("tcp_source: port %d already used by http_source", cfg.TCPSource.Port)
		}
	}

	if err := validateAuth(cfg.Auth); err != nil {
		return err
	}

	return nil
}

// Validate runs the same checks as LoadWithCLI on an assembled config.
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateSegment(s *SegmentConfig) error {
	if err := lconfig.NonEmpty(s.Endpoint); err != nil {
		return fmt.Errorf("segment: endpoint is required")
	}

	parsedURL, err := url.Parse(s.Endpoint)
	if err != nil {
		return fmt.Errorf("segment: invalid endpoint: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("segment: endpoint must use http or https scheme")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("segment: endpoint has no host")
	}

	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 30
	}
	if s.MaxConcurrency < 0 {
		return fmt.Errorf("segment: max_concurrency cannot be negative")
	}
	if s.MaxConnsPerHost < 0 {
		return fmt.Errorf("segment: max_conns_per_host cannot be negative")
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("segment: requests_per_second cannot be negative")
	}
	if s.Burst < 0 {
		return fmt.Errorf("segment: burst cannot be negative")
	}
	if s.RequestsPerSecond > 0 && s.Burst == 0 {
		s.Burst = 1
	}

	if err := validateTLSClient(s.TLS); err != nil {
		return err
	}
	if s.TLS != nil && s.TLS.Enabled && parsedURL.Scheme != "https" {
		return fmt.Errorf("segment: tls configured but endpoint is not https")
	}

	return nil
}

func validateHTTPSource(opts *HTTPSourceConfig) error {
	if err := lconfig.Port(opts.Port); err != nil {
		return fmt.Errorf("http_source: %w", err)
	}

	// Set defaults
	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.IngestPath == "" {
		opts.IngestPath = "/ingest"
	}
	if opts.MaxRequestBodySize <= 0 {
		opts.MaxRequestBodySize = 10 * 1024 * 1024 // 10MB default
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 5000
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5000
	}

	if opts.Host != "0.0.0.0" {
		if err := lconfig.IPAddress(opts.Host); err != nil {
			return fmt.Errorf("http_source: %w", err)
		}
	}

	if !strings.HasPrefix(opts.IngestPath, "/") {
		return fmt.Errorf("http_source: ingest_path must start with /")
	}

	return validateTLSServer(opts.TLS)
}

func validateTCPSource(opts *TCPSourceConfig) error {
	if err := lconfig.Port(opts.Port); err != nil {
		return fmt.Errorf("tcp_source: %w", err)
	}

	if opts.Host == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Host != "0.0.0.0" {
		if err := lconfig.IPAddress(opts.Host); err != nil {
			return fmt.Errorf("tcp_source: %w", err)
		}
	}

	if opts.FlushRecords <= 0 {
		opts.FlushRecords = 1000
	}
	if opts.FlushIntervalMs <= 0 {
		opts.FlushIntervalMs = 1000
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 10 * 1024 * 1024
	}

	return nil
}
