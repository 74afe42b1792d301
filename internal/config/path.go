// Package config resolves rofr settings from viper into the option structs of each package.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DataDir is where the database and saved tokens live unless configured otherwise.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "rofr")
	}
	return ExpandPath("~/.local/share/rofr")
}

// DatabasePath returns the configured database path, defaulting under DataDir.
func DatabasePath(configured string) string {
	if configured == "" {
		return filepath.Join(DataDir(), "rofr.db")
	}
	return ExpandPath(configured)
}

// TokenFilePath returns the configured Sheets token file, defaulting under DataDir.
func TokenFilePath(configured string) string {
	if configured == "" {
		return filepath.Join(DataDir(), "sheets-token.json")
	}
	return ExpandPath(configured)
}
