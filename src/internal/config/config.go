// FILE: src/internal/config/config.go
package config

// Config is the full segbridge configuration.
type Config struct {
	// Top-level flags for application control
	Quiet bool `toml:"quiet"`

	Logging *LogConfig `toml:"logging"`

	Segment SegmentConfig  `toml:"segment"`
	Batch   BatchConfig    `toml:"batch"`
	Mapping MappingConfig  `toml:"mapping"`
	Output  OutputConfig   `toml:"output"`
	Filters []FilterConfig `toml:"filters"`

	HTTPSource HTTPSourceConfig `toml:"http_source"`
	TCPSource  TCPSourceConfig  `toml:"tcp_source"`
	Auth       *AuthConfig      `toml:"auth"`
}

// SegmentConfig configures the batch collector client.
type SegmentConfig struct {
	WriteKey string `toml:"write_key"`
	Endpoint string `toml:"endpoint"`

	// Per-request timeout
	TimeoutSeconds int64 `toml:"timeout_seconds"`

	// Concurrent requests per run, 0 = bounded only by the connection pool
	MaxConcurrency int64 `toml:"max_concurrency"`

	// Collector connection pool size, 0 = 512
	MaxConnsPerHost int64 `toml:"max_conns_per_host"`

	// Outbound request rate, 0 = unlimited
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int64   `toml:"burst"`

	TLS *TLSClientConfig `toml:"tls"`
}

type BatchConfig struct {
	// Payload ceiling including the {"batch":[...]} envelope
	MaxPayloadBytes int64 `toml:"max_payload_bytes"`
}

type MappingConfig struct {
	// messageId strategy: "request_id", "hash", "uuid", "source_hash"
	MessageID string `toml:"message_id"`

	// Optional YAML file with call and group overrides
	File string `toml:"file"`
}

// OutputConfig controls dry-run rendering of built calls.
type OutputConfig struct {
	// "json" or "text"
	Format   string `toml:"format"`
	Pretty   bool   `toml:"pretty"`
	Template string `toml:"template"`
}

type HTTPSourceConfig struct {
	Enabled    bool   `toml:"enabled"`
	Host       string `toml:"host"`
	Port       int64  `toml:"port"`
	IngestPath string `toml:"ingest_path"`

	MaxRequestBodySize int64 `toml:"max_request_body_size"`
	ReadTimeout        int64 `toml:"read_timeout_ms"`
	WriteTimeout       int64 `toml:"write_timeout_ms"`

	TLS *TLSServerConfig `toml:"tls"`
}

type TCPSourceConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`

	// Records buffered before a run is started
	FlushRecords    int64 `toml:"flush_records"`
	FlushIntervalMs int64 `toml:"flush_interval_ms"`

	// Per-connection line limit
	MaxLineBytes int64 `toml:"max_line_bytes"`
}
