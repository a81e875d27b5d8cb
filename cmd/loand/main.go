package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loanft/config"
	"loanft/core"
	"loanft/core/genesis"
	"loanft/indexer"
	"loanft/observability/logging"
	telemetry "loanft/observability/otel"
	"loanft/rpc"
	"loanft/storage"
)

const (
	genesisPathEnv  = "LOAN_GENESIS"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON or YAML file (overrides LOAN_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service:    "loand",
		Env:        cfg.Env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, *genesisFlag, logger); err != nil {
		logger.Error("loand exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, genesisFlag string, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "loand",
		Environment: cfg.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}.ApplyEnv())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	var spec *genesis.GenesisSpec
	if path := resolveGenesisPath(genesisFlag, cfg.GenesisFile, os.LookupEnv); path != "" {
		spec, err = genesis.LoadGenesisSpec(path)
		if err != nil {
			return fmt.Errorf("load genesis spec: %w", err)
		}
	}

	if cfg.Backend != config.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("prepare data directory: %w", err)
		}
	}
	db, err := storage.Open(cfg.Backend, cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Options{ChainID: cfg.ChainID, Genesis: spec, Logger: logger})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()

	var index *indexer.Indexer
	if cfg.Indexer.Enabled {
		index, err = indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN)
		if err != nil {
			return fmt.Errorf("open indexer: %w", err)
		}
		defer index.Close()
		if err := backfillIndex(ctx, node, index); err != nil {
			return fmt.Errorf("backfill indexer: %w", err)
		}
		node.SetEventSink(index)
	}

	if !cfg.RPC.AuthEnabled() {
		logger.Warn("RPC authentication not configured; loan_sendTransaction will reject every call",
			slog.String("env", config.EnvRPCToken))
	}
	server := rpc.NewServer(node, index, cfg.RPC, logger)
	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- server.Start(cfg.RPCAddress)
		close(rpcErrCh)
	}()
	if err := waitForRPCStartup(cfg.RPCAddress, rpcErrCh, 5*time.Second); err != nil {
		return err
	}
	logger.Info("loan node running",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("backend", cfg.Backend),
		slog.Uint64("chain_id", node.ChainID()))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-rpcErrCh:
		if err != nil {
			return fmt.Errorf("rpc server terminated: %w", err)
		}
		return nil
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(sctx)
}

// backfillIndex replays committed events the index has not seen yet, starting
// at the first hole so writes the sink dropped are refilled.
func backfillIndex(ctx context.Context, node *core.Node, index *indexer.Indexer) error {
	const page = 500
	after, err := index.ResumeSequence(ctx)
	if err != nil {
		return err
	}
	for {
		records, err := node.EventsSince(after, page)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := index.IndexEvents(ctx, records); err != nil {
			return err
		}
		after = records[len(records)-1].Sequence
	}
}

type envLookupFunc func(string) (string, bool)

func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return errors.New("RPC server exited before startup confirmation")
			}
			return err
		default:
		}
		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case err, ok := <-errCh:
			if !ok || err == nil {
				return errors.New("RPC server exited before startup confirmation")
			}
			return err
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
