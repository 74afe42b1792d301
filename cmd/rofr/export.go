package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/export"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored contracts as CSV, JSON or XLSX",
		RunE:  runExport,
	}

	addFilterFlags(cmd)
	cmd.Flags().StringP("format", "f", "csv", "output format (csv, json, xlsx)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout; required for xlsx)")

	_ = viper.BindPFlag("export.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("export.output", cmd.Flags().Lookup("output"))

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := export.ParseFormat(viper.GetString("export.format"))
	if err != nil {
		return err
	}
	output := config.ExpandPath(viper.GetString("export.output"))
	if output == "" && format == export.FormatXLSX {
		return fmt.Errorf("xlsx export needs --output")
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	db, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	entries, err := db.ListContracts(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load contracts: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(output) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := export.Write(w, format, entries, export.NewMetadata(len(entries), version)); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}

	if output != "" {
		_, err = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Exported %d contracts to %s", len(entries), output)))
	}
	return err
}
