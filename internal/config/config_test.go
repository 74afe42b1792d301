package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/common"
	"github.com/Veraticus/rofr-ledger/internal/parser"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("ROFR_TEST_DIR", "/srv/rofr")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde prefix", "~/data/rofr.db", filepath.Join(home, "data", "rofr.db")},
		{"env var", "$ROFR_TEST_DIR/rofr.db", "/srv/rofr/rofr.db"},
		{"absolute", "/tmp/rofr.db", "/tmp/rofr.db"},
		{"tilde in middle untouched", "/tmp/~/x", "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, "/xdg/rofr/rofr.db", DatabasePath(""))
	assert.Equal(t, "/tmp/custom.db", DatabasePath("/tmp/custom.db"))
}

func TestParseStartDate(t *testing.T) {
	tests := []struct {
		want    *time.Time
		name    string
		in      string
		wantErr bool
	}{
		{name: "empty means unbounded", in: ""},
		{name: "two digit month", in: "03/2024", want: ptr(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))},
		{name: "one digit month", in: "3/2024", want: ptr(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))},
		{name: "surrounding space", in: " 12/2023 ", want: ptr(time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC))},
		{name: "day included", in: "03/01/2024", wantErr: true},
		{name: "month out of range", in: "13/2024", wantErr: true},
		{name: "garbage", in: "spring", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStartDate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestLoadParseOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		opts, err := LoadParseOptions()
		require.NoError(t, err)
		assert.Equal(t, parser.DefaultOptions(), opts)
	})

	t.Run("configured", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.Set("parse.workers", 8)
		viper.Set("parse.batch_size", 64)
		viper.Set("parse.start_date", "06/2023")

		opts, err := LoadParseOptions()
		require.NoError(t, err)
		assert.Equal(t, 8, opts.Workers)
		assert.Equal(t, 64, opts.BatchSize)
		require.NotNil(t, opts.StartDate)
		assert.Equal(t, time.June, opts.StartDate.Month())
	})

	t.Run("non-positive workers", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.Set("parse.workers", 0)

		_, err := LoadParseOptions()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_SPREADSHEET_ID",
	} {
		t.Setenv(key, "")
	}

	t.Run("service account from viper", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("ROFR_KEYS", "/keys")
		viper.Set("sheets.service_account_path", "$ROFR_KEYS/sa.json")
		viper.Set("sheets.spreadsheet_id", "sheet-1")

		cfg, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
		assert.Equal(t, "sheet-1", cfg.SpreadsheetID)
	})

	t.Run("oauth falls back to env", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.Set("sheets.client_id", "client")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "refresh")

		cfg, err := LoadSheetsConfig()
		require.NoError(t, err)
		assert.Equal(t, "client", cfg.ClientID)
		assert.Equal(t, "secret", cfg.ClientSecret)
		assert.Equal(t, "refresh", cfg.RefreshToken)
	})

	t.Run("nothing configured", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		_, err := LoadSheetsConfig()
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

func ptr[T any](v T) *T { return &v }

func TestTokenFilePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, "/xdg/rofr/sheets-token.json", TokenFilePath(""))
	assert.Equal(t, "/etc/rofr/token.json", TokenFilePath("/etc/rofr/token.json"))
}
