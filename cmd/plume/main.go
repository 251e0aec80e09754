package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/plumeworks/plume/internal/actor"
	"github.com/plumeworks/plume/internal/audit"
	"github.com/plumeworks/plume/internal/catalog"
	"github.com/plumeworks/plume/internal/config"
	"github.com/plumeworks/plume/internal/consts"
	"github.com/plumeworks/plume/internal/ledger"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/orchestrator"
	"github.com/plumeworks/plume/internal/provider"
	"github.com/plumeworks/plume/internal/session"
	"github.com/plumeworks/plume/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config file (default: <data dir>/config.json)")
		listenAddr = flag.String("listen", "", "listen address override")
		logLevel   = flag.String("log-level", "", "log level override (debug, info, warn, error, none)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Global().Close()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load model catalog: %w", err)
	}
	if err := cat.Watch(); err != nil {
		logger.Warn("Catalog hot reload unavailable: %v", err)
	}
	defer cat.Close()

	providers, err := provider.NewManager(cfg.CredentialsPath, os.Getenv("PLUME_SECRETS_PASSWORD"))
	if err != nil {
		return fmt.Errorf("failed to load vendor credentials: %w", err)
	}

	ledgerStore, err := ledger.Open(filepath.Join(cfg.DataDir, "ledger.db"))
	if err != nil {
		return fmt.Errorf("failed to open credit ledger: %w", err)
	}
	defer ledgerStore.Close()

	auditStore, err := audit.Open(filepath.Join(cfg.DataDir, "audit.db"))
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer auditStore.Close()

	hub := web.NewHub()
	go hub.Run()
	defer hub.Stop()

	ctx := context.Background()
	system := actor.NewSystem()
	billingRef, err := system.Spawn(ctx, "billing", actor.NewBillingActor("billing", ledgerStore, hub), consts.BillingMailboxSize)
	if err != nil {
		return fmt.Errorf("failed to start billing actor: %w", err)
	}
	auditRef, err := system.Spawn(ctx, "audit", actor.NewAuditActor("audit", auditStore), consts.AuditMailboxSize)
	if err != nil {
		return fmt.Errorf("failed to start audit actor: %w", err)
	}

	adapter := llm.NewAdapter(providers, cfg.Temperature, cfg.MaxTokens)
	orch := orchestrator.New(cat, adapter, billingRef, auditRef)
	server := web.NewServer(cfg, session.NewManager(), orch, ledgerStore, hub)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received %s, shutting down", sig)
	case err := <-errCh:
		logger.Error("Server failed: %v", err)
		return err
	}

	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}

	// Let queued billing and audit work drain before the stores close.
	stopCtx, cancel := context.WithTimeout(context.Background(), consts.Timeout30Seconds)
	defer cancel()
	if err := system.StopAll(stopCtx); err != nil {
		logger.Error("Actor shutdown error: %v", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaults := config.DefaultConfig()
	return config.Load(filepath.Join(defaults.DataDir, "config.json"))
}
