package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName     = "planty"
	dbFileName     = "planty.db"
	configFileName = "config.yaml"
	backupDirName  = "backups"
)

func baseDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func DefaultDBPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

func DefaultConfigPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultBackupPath names a timestamped backup next to the database.
func DefaultBackupPath(dbPath string, now time.Time) string {
	name := "planty-" + now.UTC().Format("20060102-150405") + ".db"
	return filepath.Join(filepath.Dir(dbPath), backupDirName, name)
}

func EnsureDBDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
