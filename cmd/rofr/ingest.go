package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/ingest"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Parse forum posts and merge them into the database",
		Long: `Parse one or more post files (JSONL or plain text) and merge every contract into
the stored record set. Later observations of a contract update its status; reposts
collapse onto the existing record. The run and its dropped lines are recorded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("start-date", "", "ignore contracts sent before this month (MM/YYYY)")
	cmd.Flags().Int("workers", 0, "parallel parser workers (default 4)")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("no-snapshot", false, "skip the automatic database snapshot")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	bindParseFlags(cmd)

	opts, err := config.LoadParseOptions()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, "Nothing from this run was saved.")
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	db, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	posts, err := ingest.LoadFiles(ctx, args)
	if err != nil {
		if errors.Is(err, common.ErrNoInput) {
			return common.NewUserError("no input files given", err)
		}
		return fmt.Errorf("failed to load input: %w", err)
	}

	if noSnapshot, _ := cmd.Flags().GetBool("no-snapshot"); !noSnapshot {
		if err := autoSnapshot(ctx, db, "ingest"); err != nil {
			return err
		}
	}

	store, err := db.LoadStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored contracts: %w", err)
	}
	baseline := store.Revision()

	runner := ingest.NewRunner(opts)
	lines, skipped := runner.Splitter.Split(posts, store.MaxSeq())
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress && len(lines) > 0 {
		runner.Progress = cli.NewProgress(os.Stderr, len(lines), "Parsing lines...")
	}

	report, err := runner.Run(ctx, lines, store)
	if err != nil {
		if interrupts.WasInterrupted() {
			return common.NewUserError("ingest interrupted", err)
		}
		return err
	}
	report.SkippedPosts = skipped

	inputs := make([]string, 0, len(args))
	for _, arg := range args {
		if abs, absErr := filepath.Abs(arg); absErr == nil {
			arg = abs
		}
		inputs = append(inputs, arg)
	}

	run := storage.Run{
		ID:           report.RunID,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Inputs:       inputs,
		Summary:      report.Summary,
		SkippedPosts: report.SkippedPosts,
	}
	saved, err := db.SaveIngest(ctx, store, baseline, run, report.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to save ingest run: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, cli.RenderSummary("Ingest Summary", report.Summary, report.SkippedPosts)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d changed records (run %s, %d stored)", saved, run.ID, store.Len())))
	return err
}
