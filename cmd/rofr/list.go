package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/model"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored contracts",
		RunE:  runList,
	}

	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 50, "maximum rows (0 for all)")

	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("resort", "", "only this resort code (e.g. SSR)")
	cmd.Flags().String("result", "", "only this result (pending, passed, taken)")
	cmd.Flags().String("from", "", "sent on or after (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "sent on or before (YYYY-MM-DD)")
}

func filterFromFlags(cmd *cobra.Command) (storage.ContractFilter, error) {
	var filter storage.ContractFilter

	resort, _ := cmd.Flags().GetString("resort")
	filter.Resort = strings.ToUpper(strings.TrimSpace(resort))

	if result, _ := cmd.Flags().GetString("result"); result != "" {
		filter.Result = model.Result(strings.ToLower(result))
		if !filter.Result.IsValid() {
			return filter, fmt.Errorf("invalid --result %q: want pending, passed or taken", result)
		}
	}

	var err error
	from, _ := cmd.Flags().GetString("from")
	if filter.From, err = parseDayFlag("from", from); err != nil {
		return filter, err
	}
	to, _ := cmd.Flags().GetString("to")
	if filter.To, err = parseDayFlag("to", to); err != nil {
		return filter, err
	}

	if cmd.Flags().Lookup("limit") != nil {
		filter.Limit, _ = cmd.Flags().GetInt("limit")
	}
	return filter, nil
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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
		return fmt.Errorf("failed to list contracts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, err = fmt.Fprintln(out, cli.FormatInfo("No contracts match"))
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, cli.ContractRow(e))
	}
	_, err = fmt.Fprintln(out, cli.RenderTable(cli.ContractHeaders, rows))
	return err
}
