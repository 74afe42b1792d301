package main

import (
	"fmt"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/export"
	"github.com/Veraticus/rofr-ledger/internal/ingest"
	"github.com/Veraticus/rofr-ledger/internal/merge"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Parse forum posts without touching the database",
		Long: `Parse one or more post files (JSONL or plain text), merge the entries in memory
and print what would be stored. Nothing is written to the database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParse,
	}

	cmd.Flags().String("start-date", "", "ignore contracts sent before this month (MM/YYYY)")
	cmd.Flags().Int("workers", 0, "parallel parser workers (default 4)")
	cmd.Flags().String("format", "", "write merged records to stdout as csv or json instead of a table")
	cmd.Flags().Int("limit", 50, "rows to show in the table (0 for all)")

	return cmd
}

func bindParseFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("parse.start_date", cmd.Flags().Lookup("start-date"))
	if cmd.Flags().Changed("workers") {
		_ = viper.BindPFlag("parse.workers", cmd.Flags().Lookup("workers"))
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bindParseFlags(cmd)

	opts, err := config.LoadParseOptions()
	if err != nil {
		return err
	}

	posts, err := ingest.LoadFiles(ctx, args)
	if err != nil {
		return fmt.Errorf("failed to load input: %w", err)
	}

	store := merge.NewStore()
	report, err := ingest.NewRunner(opts).RunPosts(ctx, posts, store)
	if err != nil {
		return err
	}

	entries := store.Entries()
	out := cmd.OutOrStdout()

	summary := cli.RenderSummary("Parse Summary (dry run)", report.Summary, report.SkippedPosts)
	if _, err := fmt.Fprintln(cmd.ErrOrStderr(), summary); err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("format"); name != "" {
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		if format == export.FormatXLSX {
			return fmt.Errorf("xlsx cannot be written to stdout; use `rofr export --output`")
		}
		return export.Write(out, format, entries, export.NewMetadata(len(entries), version))
	}

	limit, _ := cmd.Flags().GetInt("limit")
	shown := entries
	if limit > 0 && len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}
	rows := make([][]string, 0, len(shown))
	for _, e := range shown {
		rows = append(rows, cli.ContractRow(e))
	}

	if _, err := fmt.Fprintln(out, cli.RenderTable(cli.ContractHeaders, rows)); err != nil {
		return err
	}
	if len(shown) < len(entries) {
		_, err = fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("showing the latest %d of %d records", len(shown), len(entries))))
	}
	return err
}
