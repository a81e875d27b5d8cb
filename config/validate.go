package config

import (
	"fmt"
	"net"
)

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if c.RPCAddress == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if _, _, err := net.SplitHostPort(c.RPCAddress); err != nil {
		return fmt.Errorf("RPCAddress: %w", err)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendBolt:
		if c.DataDir == "" {
			return fmt.Errorf("DataDir must be set for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("Backend %q is not one of memory, leveldb, bolt", c.Backend)
	}
	if c.ChainID == 0 {
		return fmt.Errorf("ChainID must be greater than zero")
	}
	if c.RPC.RateLimitPerSecond < 0 || c.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("RPC rate limits must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("RPC.RateLimitBurst must be positive when rate limiting is enabled")
	}
	if c.RPC.JWTSecret != "" && len(c.RPC.JWTSecret) < 16 {
		return fmt.Errorf("RPC.JWTSecret must be at least 16 bytes")
	}
	for _, proxy := range c.RPC.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			return fmt.Errorf("RPC.TrustedProxies: invalid address %q", proxy)
		}
	}
	if c.Indexer.Enabled {
		switch c.Indexer.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("Indexer.Driver %q is not one of sqlite, postgres", c.Indexer.Driver)
		}
		if c.Indexer.DSN == "" {
			return fmt.Errorf("Indexer.DSN must be set when the indexer is enabled")
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("Telemetry.SampleRatio must be within [0,1]")
	}
	return nil
}
