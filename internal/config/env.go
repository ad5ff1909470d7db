package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads KEY=VALUE pairs from .env and .env.local when present.
// Variables already set in the process environment win.
func loadEnvFiles() error {
	for _, name := range envFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return err
		}
		slog.Debug("Loaded environment file", slog.String("path", name))
	}
	return nil
}
