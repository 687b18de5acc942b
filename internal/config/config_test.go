package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/storecache/internal/cache"
	"github.com/rshade/storecache/internal/config"
	"github.com/rshade/storecache/internal/logging"
)

// envMap returns a lookupEnv func backed by a map.
func envMap(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

// writeConfig is a test helper that writes YAML content to a temp file
// and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewDefaults(t *testing.T) {
	cfg := config.New()
	assert.Equal(t, cache.DefaultTTL, cfg.Cache.DefaultTTL)
	assert.Equal(t, cache.DefaultMaxItems, cfg.Cache.MaxItems)
	assert.Equal(t, cache.DefaultNamespace, cfg.Cache.Namespace)
	assert.True(t, cfg.Cache.Persist)
	assert.False(t, cfg.Cache.Coalesce)
	assert.Equal(t, config.DefaultFetchTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, config.DefaultFetchConcurrency, cfg.Fetch.Concurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	home := t.TempDir()
	cfg, err := config.Load("", envMap(map[string]string{config.EnvHome: home}))
	require.NoError(t, err)

	assert.Equal(t, cache.DefaultTTL, cfg.Cache.DefaultTTL)
	assert.Equal(t, filepath.Join(home, "data"), cfg.Cache.Directory)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_FileKeepsUnsetValues(t *testing.T) {
	path := writeConfig(t, `
cache:
  default_ttl: 90s
  max_items: 25
fetch:
  base_url: https://api.example.test
logging:
  format: json
`)
	cfg, err := config.Load(path, envMap(map[string]string{config.EnvHome: t.TempDir()}))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 25, cfg.Cache.MaxItems)
	assert.True(t, cfg.Cache.Persist, "keys absent from the file keep defaults")
	assert.Equal(t, cache.DefaultNamespace, cfg.Cache.Namespace)
	assert.Equal(t, "https://api.example.test", cfg.Fetch.BaseURL)
	assert.Equal(t, config.DefaultFetchTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, logging.FormatJSON, cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
cache:
  default_ttl: 90s
  max_items: 25
`)
	dataDir := t.TempDir()
	cfg, err := config.Load(path, envMap(map[string]string{
		config.EnvCacheTTL:      "1500",
		config.EnvCacheMaxItems: "7",
		config.EnvCacheDir:      dataDir,
		config.EnvCacheEnabled:  "false",
		config.EnvLogLevel:      "debug",
		config.EnvAPIToken:      "secret",
		config.EnvAPIBaseURL:    "https://shop.example.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Cache.DefaultTTL)
	assert.Equal(t, 7, cfg.Cache.MaxItems)
	assert.Equal(t, dataDir, cfg.Cache.Directory)
	assert.False(t, cfg.Cache.Persist)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "secret", cfg.Fetch.Token)
	assert.Equal(t, "https://shop.example.test", cfg.Fetch.BaseURL)
}

func TestApplyEnv_InvalidValuesIgnored(t *testing.T) {
	cfg := config.New()
	cfg.ApplyEnv(envMap(map[string]string{
		config.EnvCacheTTL:      "forever",
		config.EnvCacheMaxItems: "-3",
		config.EnvCacheEnabled:  "maybe",
	}))

	assert.Equal(t, cache.DefaultTTL, cfg.Cache.DefaultTTL)
	assert.Equal(t, cache.DefaultMaxItems, cfg.Cache.MaxItems)
	assert.True(t, cfg.Cache.Persist)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cache: [unterminated")
	_, err := config.Load(path, envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		errMsg string
	}{
		{"zero max items", func(c *config.Config) { c.Cache.MaxItems = 0 }, "max_items"},
		{"zero ttl", func(c *config.Config) { c.Cache.DefaultTTL = 0 }, "default_ttl"},
		{"huge ttl", func(c *config.Config) { c.Cache.DefaultTTL = 30 * 24 * time.Hour }, "default_ttl"},
		{"bad namespace", func(c *config.Config) { c.Cache.Namespace = "a/b" }, "namespace"},
		{"negative failure limit", func(c *config.Config) { c.Cache.PersistFailureLimit = -1 }, "persist_failure_limit"},
		{"negative prune interval", func(c *config.Config) { c.Cache.PruneInterval = -time.Second }, "prune_interval"},
		{"negative concurrency", func(c *config.Config) { c.Fetch.Concurrency = -1 }, "concurrency"},
		{"negative timeout", func(c *config.Config) { c.Fetch.Timeout = -time.Second }, "timeout"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.New()
	cfg.Cache.DefaultTTL = 2 * time.Minute
	cfg.Cache.Coalesce = true
	cfg.Cache.Directory = t.TempDir()
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_ttl: 2m0s")

	loaded, err := config.Load(path, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, loaded.Cache.DefaultTTL)
	assert.True(t, loaded.Cache.Coalesce)
	assert.Equal(t, cfg.Cache.Directory, loaded.Cache.Directory)
}

func TestRedacted(t *testing.T) {
	cfg := config.New()
	cfg.Fetch.Token = "secret"

	shown := cfg.Redacted()
	assert.NotEqual(t, "secret", shown.Fetch.Token)
	assert.Equal(t, "secret", cfg.Fetch.Token, "original is untouched")
	assert.Empty(t, config.New().Redacted().Fetch.Token)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := config.ExpandHome("~/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), got)

	got, err = config.ExpandHome("/var/data")
	require.NoError(t, err)
	assert.Equal(t, "/var/data", got)
}

func TestEnsureDirs(t *testing.T) {
	cfg := config.New()
	cfg.Cache.Directory = filepath.Join(t.TempDir(), "data")
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "storecache.log")

	require.NoError(t, cfg.EnsureDataDir())
	_, err := os.Stat(filepath.Join(cfg.Cache.Directory, ".gitignore"))
	require.NoError(t, err)

	require.NoError(t, cfg.EnsureLogDir())
	_, err = os.Stat(filepath.Dir(cfg.Logging.File))
	require.NoError(t, err)
}

func TestToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "warn", Format: "json"}
	assert.Equal(t, logging.OutputStderr, lc.ToLoggingConfig().Output)

	lc.File = "/tmp/storecache.log"
	out := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, out.Output)
	assert.Equal(t, "/tmp/storecache.log", out.File)
	assert.Equal(t, "warn", out.Level)
}
