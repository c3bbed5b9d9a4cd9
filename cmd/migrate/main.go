package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"stock-track-backend/internal/config"
	"stock-track-backend/internal/logx"
	"stock-track-backend/migrations"
)

func main() {
	logx.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("Missing or invalid configuration")
	}

	dsn, err := cfg.DSN()
	if err != nil {
		logx.Fatal().Err(err).Msg("Invalid database configuration")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to open database connection")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logx.Fatal().Err(err).Msg("Failed to ping database")
	}

	all, err := migrations.All()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to read migrations")
	}

	for _, m := range all {
		applied, err := apply(ctx, db, m)
		if err != nil {
			logx.Fatal().Err(err).Str("migration", m.Name).Msg("Migration failed")
		}
		if !applied {
			logx.Info().Str("migration", m.Name).Msg("Already applied, skipping")
			continue
		}
		logx.Info().Str("migration", m.Name).Msg("Migration applied")
	}

	logx.Info().Msg("Migrations completed successfully!")
}

// apply runs m inside a transaction unless it is already recorded.
func apply(ctx context.Context, db *sql.DB, m migrations.Migration) (bool, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return false, fmt.Errorf("create schema_migrations: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, m.Name,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check migration status: %w", err)
	}
	if exists {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
		return false, fmt.Errorf("record migration: %w", err)
	}

	return true, tx.Commit()
}
