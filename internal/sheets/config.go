// Package sheets publishes the merged contract set to a Google Sheets dashboard.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
)

// Config holds the configuration for the Google Sheets publisher.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	retry := common.DefaultRetryOptions()
	return Config{
		SpreadsheetName:  "DVC ROFR Tracker",
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    retry.MaxAttempts,
		RetryDelay:       retry.InitialDelay,
	}
}

// LoadFromEnv fills unset credentials from the standard GOOGLE_SHEETS_* environment variables.
func (c *Config) LoadFromEnv() {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fallback(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	fallback(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	fallback(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	fallback(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	fallback(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
		return fmt.Errorf("spreadsheet id or name is required")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
