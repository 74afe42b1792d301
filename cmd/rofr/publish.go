package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/rofr-ledger/internal/cli"
	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/config"
	"github.com/Veraticus/rofr-ledger/internal/sheets"
	"github.com/Veraticus/rofr-ledger/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func publishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish stored contracts to Google Sheets",
		Long: `Replace the Contracts and Resorts tabs of the configured spreadsheet with the
stored record set. A new spreadsheet is created when no sheets.spreadsheet_id is set.`,
		RunE: runPublish,
	}

	cmd.Flags().String("spreadsheet-id", "", "target spreadsheet id")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))

	cmd.AddCommand(publishAuthCmd())

	return cmd
}

func runPublish(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return err
	}

	db, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return err
	}

	n, err := publish(cmd, db, writer)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Published %d contracts", n)))
	return err
}

func publish(cmd *cobra.Command, db *storage.SQLiteStorage, publisher sheets.Publisher) (int, error) {
	entries, err := db.ListContracts(cmd.Context(), storage.ContractFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to load contracts: %w", err)
	}
	if len(entries) == 0 {
		return 0, common.NewUserError("nothing to publish; run `rofr ingest` first", common.ErrNoRecords)
	}
	if err := publisher.Publish(cmd.Context(), entries); err != nil {
		return 0, fmt.Errorf("failed to publish: %w", err)
	}
	return len(entries), nil
}

func publishAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize rofr to write to Google Sheets",
		Long: `Run the browser OAuth2 flow with sheets.client_id and sheets.client_secret and save
the refresh token to sheets.token_file (default: $HOME/.local/share/rofr/sheets-token.json).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := viper.GetString("sheets.client_id")
			clientSecret := viper.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("sheets.client_id and sheets.client_secret must be configured")
			}

			tokenFile := config.TokenFilePath(viper.GetString("sheets.token_file"))

			out := cmd.OutOrStdout()
			_, err := sheets.Authenticate(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
			}, func(url string) {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Open this URL to authorize rofr:"))
				_, _ = fmt.Fprintln(out, url)
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(out, cli.FormatSuccess("Authorized; token saved to "+tokenFile))
			return err
		},
	}
}
