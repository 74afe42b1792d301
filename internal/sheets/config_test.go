package sheets

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:        "test-client",
				ClientSecret:    "test-secret",
				RefreshToken:    "test-token",
				SpreadsheetName: "ROFR",
				BatchSize:       100,
				RetryAttempts:   3,
				RetryDelay:      time.Second,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SpreadsheetID:      "abc123",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
		},
		{
			name: "missing auth",
			config: Config{
				SpreadsheetName: "ROFR",
				BatchSize:       100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:        "test-client",
				RefreshToken:    "test-token",
				SpreadsheetName: "ROFR",
				BatchSize:       100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "multiple auth methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				SpreadsheetName:    "ROFR",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name: "no spreadsheet target",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "spreadsheet id or name is required",
		},
		{
			name: "invalid batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SpreadsheetName:    "ROFR",
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "negative retry attempts",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SpreadsheetName:    "ROFR",
				BatchSize:          100,
				RetryAttempts:      -1,
			},
			wantErr: true,
			errMsg:  "retry attempts cannot be negative",
		},
		{
			name: "negative retry delay",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				SpreadsheetName:    "ROFR",
				BatchSize:          100,
				RetryDelay:         -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceAccountPath = "/path/to/key.json"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.True(t, cfg.EnableFormatting)
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")

	cfg := Config{ClientSecret: "file-secret", SpreadsheetID: "file-sheet"}
	cfg.LoadFromEnv()

	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "file-secret", cfg.ClientSecret, "configured value wins over env")
	assert.Equal(t, "file-sheet", cfg.SpreadsheetID)
}

func TestConfig_ApplyTokenFile(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "tokens", "sheets.json")
	require.NoError(t, SaveToken(tokenPath, &oauth2.Token{RefreshToken: "saved-refresh", TokenType: "Bearer"}))

	t.Run("fills missing refresh token", func(t *testing.T) {
		cfg := Config{ClientID: "id", ClientSecret: "secret", TokenFile: tokenPath}
		require.NoError(t, cfg.ApplyTokenFile())
		assert.Equal(t, "saved-refresh", cfg.RefreshToken)
	})

	t.Run("keeps explicit refresh token", func(t *testing.T) {
		cfg := Config{RefreshToken: "explicit", TokenFile: tokenPath}
		require.NoError(t, cfg.ApplyTokenFile())
		assert.Equal(t, "explicit", cfg.RefreshToken)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		cfg := Config{TokenFile: filepath.Join(dir, "absent.json")}
		require.NoError(t, cfg.ApplyTokenFile())
		assert.Empty(t, cfg.RefreshToken)
	})
}
