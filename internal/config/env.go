package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are read in order; earlier files win because godotenv never
// overwrites a variable that is already set.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads .env.local and .env from dir into the process
// environment and returns the files it read. Existing process environment
// variables are not overwritten, so the real environment beats both files.
func loadEnvFiles(dir string) ([]string, error) {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
