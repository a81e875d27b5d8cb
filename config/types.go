package config

import "time"

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// RPCConfig controls the JSON-RPC server.
type RPCConfig struct {
	// AuthToken is a static bearer token accepted for mutating calls.
	AuthToken string `toml:"AuthToken"`
	// JWTSecret enables HS256 bearer tokens for mutating calls.
	JWTSecret          string   `toml:"JWTSecret"`
	JWTIssuer          string   `toml:"JWTIssuer"`
	RateLimitPerSecond float64  `toml:"RateLimitPerSecond"`
	RateLimitBurst     int      `toml:"RateLimitBurst"`
	TrustProxyHeaders  bool     `toml:"TrustProxyHeaders"`
	TrustedProxies     []string `toml:"TrustedProxies"`
	MaxBodyBytes       int64    `toml:"MaxBodyBytes"`
	ReadHeaderTimeout  int      `toml:"ReadHeaderTimeout"`
	ReadTimeout        int      `toml:"ReadTimeout"`
	WriteTimeout       int      `toml:"WriteTimeout"`
	IdleTimeout        int      `toml:"IdleTimeout"`
}

// AuthEnabled reports whether any bearer credential is configured.
func (r RPCConfig) AuthEnabled() bool { return r.AuthToken != "" || r.JWTSecret != "" }

// Timeouts returns the server timeouts as durations.
func (r RPCConfig) Timeouts() (readHeader, read, write, idle time.Duration) {
	return seconds(r.ReadHeaderTimeout), seconds(r.ReadTimeout), seconds(r.WriteTimeout), seconds(r.IdleTimeout)
}

func seconds(v int) time.Duration { return time.Duration(v) * time.Second }

// IndexerConfig controls the optional SQL event index.
type IndexerConfig struct {
	Enabled bool   `toml:"Enabled"`
	Driver  string `toml:"Driver"`
	DSN     string `toml:"DSN"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}
