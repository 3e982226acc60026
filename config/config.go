package config

// Config represents the vibegraph client configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// ServerConfig configures the vibe-check backend endpoints
type ServerConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"` // REST base, e.g. "http://localhost:8000/api"
	WSBaseURL  string `mapstructure:"ws_base_url"`  // Push channel base, e.g. "ws://localhost:8000/ws"

	// TimeoutSeconds bounds each REST request
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// RequestsPerSecond limits REST traffic toward the backend
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// TransportConfig tunes the push channel reliability layer
type TransportConfig struct {
	MaxRetries          int `mapstructure:"max_retries"`           // reconnect attempts before fallback polling (default: 5)
	BackoffBaseMS       int `mapstructure:"backoff_base_ms"`       // first reconnect delay (default: 1000)
	BackoffMaxMS        int `mapstructure:"backoff_max_ms"`        // backoff ceiling (default: 30000)
	PollIntervalMS      int `mapstructure:"poll_interval_ms"`      // fallback refetch period (default: 2000)
	HandshakeTimeoutSec int `mapstructure:"handshake_timeout_sec"` // websocket dial timeout (default: 10)
}

// GraphConfig tunes the client-side graph model
type GraphConfig struct {
	// BlastDepth is how many hops "show impact" traverses from the selected node
	BlastDepth int `mapstructure:"blast_depth"`

	// PendingFlushLimit is how many flush cycles an edge with missing
	// endpoints may wait before it is dropped and counted
	PendingFlushLimit int `mapstructure:"pending_flush_limit"`
}

// ArchiveConfig configures the local SQLite run archive
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}
