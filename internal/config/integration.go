package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetConfigDir returns the storecache configuration directory:
// $STORECACHE_HOME when set, otherwise ~/.storecache.
func GetConfigDir(lookupEnv func(string) (string, bool)) (string, error) {
	if home, ok := lookupEnv(EnvHome); ok && home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".storecache"), nil
}

// DefaultConfigPath returns the path of config.yaml inside the config directory.
func DefaultConfigPath(lookupEnv func(string) (string, bool)) (string, error) {
	dir, err := GetConfigDir(lookupEnv)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// GetDataDir returns the default directory for persisted cache blobs.
func GetDataDir(lookupEnv func(string) (string, bool)) (string, error) {
	dir, err := GetConfigDir(lookupEnv)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}

// EnsureDataDir creates the cache data directory and drops a .gitignore into
// it so persisted blobs are never committed when the directory lives inside a
// repository.
func (c *Config) EnsureDataDir() error {
	if _, err := EnsureGitignore(c.Cache.Directory); err != nil {
		return err
	}
	return nil
}

// EnsureLogDir ensures the directory for the configured log file exists.
// If no log file is configured, it does nothing.
func (c *Config) EnsureLogDir() error {
	if c.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}
