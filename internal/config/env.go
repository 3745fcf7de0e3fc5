package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFileNames are tried in order; the first existing file is loaded.
var envFileNames = []string{".env", ".env.local"}

// loadEnvFiles loads environment variables from .env/.env.local in dir.
// Existing process environment variables are not overwritten.
func loadEnvFiles(dir string) error {
	for _, name := range envFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return godotenv.Load(p)
	}
	return errors.New("no .env file found")
}
