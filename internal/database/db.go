// Package database handles the initialization and connection to the SQLite db
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// InitDB opens (creating if necessary) the workflow database at dbPath,
// applies the pragmas the engine depends on, and runs migrations.
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are required for the card -> column -> pipeline chain
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		closeOnError(db)
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL mode for better concurrency across processes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		closeOnError(db)
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite retries for this duration instead of failing immediately
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		closeOnError(db)
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		closeOnError(db)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	// Single writer connection: serializes card moves at the storage
	// boundary and avoids SQLITE_BUSY churn
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(ctx, db); err != nil {
		closeOnError(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func closeOnError(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing db", "error", err)
	}
}
