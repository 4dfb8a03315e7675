package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
	"github.com/finrisk/checkpointengine/internal/config"
	"github.com/finrisk/checkpointengine/internal/httpapi"
	"github.com/finrisk/checkpointengine/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the checkpoint engine's HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	logger.Info("starting checkpointengine", "version", Version, "db_path", cfg.Database.Path)

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	defs := sqlite.NewDefinitionStore(store)
	instances := sqlite.NewInstanceStore(store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := checkpoint.Seed(ctx, defs); err != nil {
		return fmt.Errorf("seeding built-in definitions: %w", err)
	}

	resolver := checkpoint.NewResolver(defs, instances)
	orchestrator := checkpoint.NewOrchestrator(resolver, instances)
	controller := checkpoint.NewController(defs, instances, cfg.Breaker.ScanFallback, logger)

	server := httpapi.New(defs, orchestrator, controller, cfg.HTTP.CORSOrigins, logger)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
