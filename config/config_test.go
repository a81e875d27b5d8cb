package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendLevelDB, cfg.Backend)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, again.RPCAddress)
	require.Equal(t, filepath.Join(cfg.DataDir, "state"), again.StoragePath())
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
Backend = "Bolt"
GenesisFile = "genesis.yaml"
ChainID = 7

[Log]
Level = "DEBUG"
File = "/var/log/loand.log"

[RPC]
AuthToken = "file-token"
RateLimitPerSecond = 2.5
RateLimitBurst = 5
TrustedProxies = ["10.0.0.1"]

[Indexer]
Enabled = true
Driver = "postgres"
DSN = "postgres://loan@localhost/loan"

[Telemetry]
Traces = true
SampleRatio = 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendBolt, cfg.Backend)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "file-token", cfg.RPC.AuthToken)
	require.InDelta(t, 2.5, cfg.RPC.RateLimitPerSecond, 1e-9)
	require.True(t, cfg.Indexer.Enabled)
	require.Equal(t, "postgres", cfg.Indexer.Driver)
	require.Equal(t, filepath.Join("data", "state.bolt"), cfg.StoragePath())
	require.Equal(t, int64(1<<20), cfg.RPC.MaxBodyBytes)
	require.True(t, cfg.RPC.AuthEnabled())
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	_, err := Load(path)
	require.NoError(t, err)

	t.Setenv(EnvRPCToken, "env-token")
	t.Setenv(EnvEnv, "prod")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env-token", cfg.RPC.AuthToken)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAddress = \"127.0.0.1:1\"\nValidatorKey = \"x\"\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad address":    func(c *Config) { c.RPCAddress = "nope" },
		"bad backend":    func(c *Config) { c.Backend = "rocksdb" },
		"no data dir":    func(c *Config) { c.DataDir = "" },
		"zero chain":     func(c *Config) { c.ChainID = 0 },
		"no burst":       func(c *Config) { c.RPC.RateLimitBurst = 0 },
		"short secret":   func(c *Config) { c.RPC.JWTSecret = "short" },
		"bad proxy":      func(c *Config) { c.RPC.TrustedProxies = []string{"host"} },
		"indexer no dsn": func(c *Config) { c.Indexer.Enabled = true },
		"sample ratio":   func(c *Config) { c.Telemetry.SampleRatio = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, Default().Validate())

	mem := Default()
	mem.Backend = BackendMemory
	mem.DataDir = ""
	require.NoError(t, mem.Validate())
}
