package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show ingest history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			db, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runs, err := db.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				_, err = fmt.Fprintln(out, cli.FormatInfo("No ingest runs recorded"))
				return err
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					fmt.Sprintf("%d", r.Summary.Lines),
					fmt.Sprintf("%d", r.Summary.Matched),
					fmt.Sprintf("%d", r.Summary.Inserted),
					fmt.Sprintf("%d", r.Summary.Updated),
					fmt.Sprintf("%d", r.Summary.Dropped()),
					fmt.Sprintf("%d", r.Summary.MergeAnomalies),
				})
			}
			_, err = fmt.Fprintln(out, cli.RenderTable(
				[]string{"Run", "Started", "Lines", "Matched", "New", "Updated", "Dropped", "Anomalies"}, rows))
			return err
		},
	}

	cmd.Flags().Int("limit", 20, "runs to show")

	return cmd
}

func diagnosticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnostics <run-id>",
		Short: "Show the lines an ingest run dropped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reason, _ := cmd.Flags().GetString("reason")

			db, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			run, err := db.GetRun(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no run with id %s", args[0]), err)
				}
				return err
			}

			diags, err := db.ListDiagnostics(ctx, run.ID, parser.Reason(reason))
			if err != nil {
				return fmt.Errorf("failed to list diagnostics: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cli.RenderSummary("Run "+run.ID, run.Summary, run.SkippedPosts))
			if len(diags) == 0 {
				_, err = fmt.Fprintln(out, cli.FormatSuccess("No dropped lines"))
				return err
			}

			rows := make([][]string, 0, len(diags))
			for _, d := range diags {
				why := string(d.Reason)
				if why == "" {
					why = string(d.Status)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d:%d", d.Page, d.LineNo),
					why,
					d.Field,
					truncate(d.Text, 60),
				})
			}
			_, err = fmt.Fprintln(out, cli.RenderTable([]string{"Page:Line", "Reason", "Field", "Text"}, rows))
			return err
		},
	}

	cmd.Flags().String("reason", "", "only this reason (e.g. unparseable_date)")

	return cmd
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
