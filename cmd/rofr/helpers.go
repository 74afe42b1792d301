package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.DatabasePath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseDayFlag parses an optional YYYY-MM-DD flag value.
func parseDayFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, value)
	}
	return &t, nil
}
