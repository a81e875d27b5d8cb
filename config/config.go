package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Environment variables that override file settings.
const (
	EnvRPCToken  = "LOAN_RPC_TOKEN"
	EnvJWTSecret = "LOAN_JWT_SECRET"
	EnvEnv       = "LOAN_ENV"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Backend     string `toml:"Backend"`
	GenesisFile string `toml:"GenesisFile"`
	ChainID     uint64 `toml:"ChainID"`
	Env         string `toml:"Env"`

	Log       LogConfig       `toml:"Log"`
	RPC       RPCConfig       `toml:"RPC"`
	Indexer   IndexerConfig   `toml:"Indexer"`
	Telemetry TelemetryConfig `toml:"Telemetry"`
}

// Load loads the configuration from the given path, writing a default file
// first when none exists. Environment overrides are applied before
// validation.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		cfg = &Config{}
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
		}
	}

	cfg.normalize()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	cfg := &Config{
		RPCAddress: "127.0.0.1:8545",
		DataDir:    "./loan-data",
		Backend:    BackendLevelDB,
		ChainID:    1,
		Env:        "dev",
		Log:        LogConfig{Level: "info"},
		RPC: RPCConfig{
			RateLimitPerSecond: 10,
			RateLimitBurst:     20,
		},
		Indexer: IndexerConfig{Driver: "sqlite"},
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	c.RPCAddress = strings.TrimSpace(c.RPCAddress)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendLevelDB
	}
	c.Env = strings.TrimSpace(c.Env)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.RPC.MaxBodyBytes <= 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.RPC.ReadHeaderTimeout <= 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.RPC.ReadTimeout <= 0 {
		c.RPC.ReadTimeout = 15
	}
	if c.RPC.WriteTimeout <= 0 {
		c.RPC.WriteTimeout = 15
	}
	if c.RPC.IdleTimeout <= 0 {
		c.RPC.IdleTimeout = 60
	}
	if c.RPC.TrustedProxies == nil {
		c.RPC.TrustedProxies = []string{}
	}
	c.Indexer.Driver = strings.ToLower(strings.TrimSpace(c.Indexer.Driver))
	if c.Indexer.Driver == "" {
		c.Indexer.Driver = "sqlite"
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvRPCToken)); v != "" {
		c.RPC.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		c.RPC.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnv)); v != "" {
		c.Env = v
	}
}

// StoragePath returns the on-disk location for the configured backend.
func (c *Config) StoragePath() string {
	switch c.Backend {
	case BackendBolt:
		return filepath.Join(c.DataDir, "state.bolt")
	case BackendMemory:
		return ""
	default:
		return filepath.Join(c.DataDir, "state")
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
