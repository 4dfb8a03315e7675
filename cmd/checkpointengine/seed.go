package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finrisk/checkpointengine/internal/checkpoint"
	"github.com/finrisk/checkpointengine/internal/config"
	"github.com/finrisk/checkpointengine/internal/storage/sqlite"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Idempotently install the built-in checkpoint definitions",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	defs := sqlite.NewDefinitionStore(store)
	if err := checkpoint.Seed(context.Background(), defs); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	fmt.Println("seed complete")
	return nil
}
