package main

import (
	"fmt"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/quality"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report suspicious stored contracts",
		Long: `Flag stored contracts whose prices look implausible, whose total cost disagrees
with price times points, whose dates are inconsistent, whose resort code is unknown,
or whose price is an outlier for its resort.`,
		RunE: runCheck,
	}

	addFilterFlags(cmd)
	cmd.Flags().Float64("high", 0, "flag prices above this many dollars per point (default 500)")
	cmd.Flags().Float64("low", 0, "flag prices below this many dollars per point (default 25)")
	cmd.Flags().Int("show", 20, "issues to list (0 for all)")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	thresholds := quality.DefaultThresholds()
	if high, _ := cmd.Flags().GetFloat64("high"); high > 0 {
		thresholds.HighPrice = decimal.NewFromFloat(high)
	}
	if low, _ := cmd.Flags().GetFloat64("low"); low > 0 {
		thresholds.LowPrice = decimal.NewFromFloat(low)
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

	show, _ := cmd.Flags().GetInt("show")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderQuality(quality.Check(entries, thresholds), show))
	return err
}
