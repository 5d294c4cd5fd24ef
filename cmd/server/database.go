package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/platform/postgres"
	"github.com/otis-tran/demo-service/internal/redact"
)

// setupAppDatabase connects to PostgreSQL and applies migrations. It returns
// a nil *sql.DB when no database URL is configured, selecting the in-memory
// task store.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		logger.Info("no database configured, using in-memory task store")
		return nil, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		// pgx errors can echo the connection string
		return nil, errors.New(redact.Error(err))
	}

	if err := postgres.Migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %s", redact.Error(err))
	}

	logger.Info("database connection established")
	return db, nil
}
