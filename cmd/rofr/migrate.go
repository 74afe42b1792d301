package main

import (
	"fmt"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open, so this is only needed to prepare a
database ahead of time or to inspect its version with --status.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	dbPath := config.DatabasePath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()

	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		state := cli.FormatSuccess("up to date")
		if current < storage.ExpectedSchemaVersion {
			state = cli.FormatWarning(fmt.Sprintf("%d migration(s) pending", storage.ExpectedSchemaVersion-current))
		}
		_, err = fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Database Migration Status",
			fmt.Sprintf("Database: %s\nCurrent version: %d\nLatest version: %d\n%s",
				dbPath, current, storage.ExpectedSchemaVersion, state)))
		return err
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s %s is at schema version %d", cli.FolderIcon, dbPath, storage.ExpectedSchemaVersion)))
	return err
}
