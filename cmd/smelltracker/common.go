package main

import (
	"context"
	"fmt"

	"github.com/rohankatakam/smelltracker/internal/config"
	"github.com/rohankatakam/smelltracker/internal/storage"
)

// openStore validates the storage section, resolves the database password
// and connects. SQLite databases get their schema on open; Postgres needs
// `smelltracker migrate` once.
func openStore(ctx context.Context) (storage.Store, error) {
	if err := config.NewCredentialManager().ResolveStorageSecrets(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(config.ValidationContextStorage).Err(); err != nil {
		return nil, err
	}

	switch cfg.Storage.Type {
	case "postgres":
		return storage.NewPostgresStore(ctx, cfg.Storage.PostgresDSN, cfg.Analysis.BatchSize, logger)
	case "sqlite":
		return storage.NewSQLiteStore(ctx, cfg.Storage.LocalPath, cfg.Analysis.BatchSize, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// prepareAnalysis resolves secrets and validates everything an analysis run needs
func prepareAnalysis() error {
	if err := config.NewCredentialManager().ResolveFeedSecrets(cfg); err != nil {
		return err
	}
	result := cfg.Validate(config.ValidationContextAnalyze)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return result.Err()
}
