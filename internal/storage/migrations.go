package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/rofr-ledger/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Contracts and outcome observations",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS contracts (
					dedup_key TEXT PRIMARY KEY,
					username TEXT NOT NULL,
					price_per_point TEXT NOT NULL,
					total_cost TEXT,
					points INTEGER NOT NULL CHECK (points > 0),
					resort_code TEXT NOT NULL,
					resort_recognized INTEGER NOT NULL DEFAULT 0,
					use_year TEXT NOT NULL DEFAULT '',
					points_details TEXT NOT NULL DEFAULT '',
					sent_date TEXT NOT NULL,
					result TEXT NOT NULL CHECK (result IN ('pending', 'passed', 'taken')),
					result_date TEXT,
					date_inconsistent INTEGER NOT NULL DEFAULT 0,
					source_url TEXT NOT NULL DEFAULT '',
					page INTEGER NOT NULL DEFAULT 0,
					raw_text TEXT NOT NULL,
					first_seq INTEGER NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_contracts_sent_date ON contracts(sent_date)`,
				`CREATE INDEX idx_contracts_resort ON contracts(resort_code)`,
				`CREATE INDEX idx_contracts_result ON contracts(result)`,

				`CREATE TABLE IF NOT EXISTS observations (
					dedup_key TEXT NOT NULL,
					seq INTEGER NOT NULL,
					result TEXT NOT NULL,
					result_date TEXT,
					source_url TEXT NOT NULL DEFAULT '',
					raw_text TEXT NOT NULL,
					PRIMARY KEY (dedup_key, seq),
					FOREIGN KEY (dedup_key) REFERENCES contracts(dedup_key)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Ingestion runs",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					inputs TEXT NOT NULL DEFAULT '[]',
					skipped_posts INTEGER NOT NULL DEFAULT 0,
					summary TEXT NOT NULL
				)`,
				`CREATE INDEX idx_runs_started_at ON runs(started_at)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Per-run line diagnostics",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS diagnostics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					seq INTEGER NOT NULL,
					source_url TEXT NOT NULL DEFAULT '',
					page INTEGER NOT NULL DEFAULT 0,
					line_no INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					field TEXT NOT NULL DEFAULT '',
					detail TEXT NOT NULL DEFAULT '',
					text TEXT NOT NULL,
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
				`CREATE INDEX idx_diagnostics_run ON diagnostics(run_id, seq)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version mismatch: expected %d, got %d", common.ErrDatabaseCorrupted, ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
