// Package config loads storecache configuration from defaults, a YAML file,
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/storecache/internal/cache"
	"github.com/rshade/storecache/internal/logging"
)

// Defaults for sections not covered by the cache package.
const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultFetchConcurrency = 4
	DefaultLogLevel         = "info"
	DefaultLogFormat        = logging.FormatConsole

	// configFileName is the config file name inside the config directory.
	configFileName = "config.yaml"

	// redacted replaces secrets when a config is displayed.
	redacted = "********"
)

// Config is the top-level storecache configuration.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Logging LoggingConfig `yaml:"logging"`
}

// CacheConfig configures the TTL cache and its persistence mirror.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxItems   int           `yaml:"max_items"`
	Namespace  string        `yaml:"namespace"`

	// Directory holds the persisted blob. Empty means <config dir>/data.
	Directory string `yaml:"directory"`

	// Persist mirrors the cache to Directory. When false the cache is session-only.
	Persist bool `yaml:"persist"`

	// Coalesce shares one producer call between concurrent fetches of a cold key.
	Coalesce bool `yaml:"coalesce"`

	// PersistFailureLimit disables persistence after this many consecutive
	// failed writes. Zero never disables it.
	PersistFailureLimit int `yaml:"persist_failure_limit"`

	// PruneInterval runs a background janitor when positive.
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// FetchConfig configures the storefront REST client used to populate the cache.
type FetchConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Cache: CacheConfig{
			DefaultTTL: cache.DefaultTTL,
			MaxItems:   cache.DefaultMaxItems,
			Namespace:  cache.DefaultNamespace,
			Persist:    true,
		},
		Fetch: FetchConfig{
			Timeout:     DefaultFetchTimeout,
			Concurrency: DefaultFetchConcurrency,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path, then environment overrides from lookupEnv.
// An empty path means the default config file, which may be absent; an
// explicit path must exist.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath(lookupEnv)
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.ApplyEnv(lookupEnv)

	if err := cfg.resolvePaths(lookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file at path onto cfg. Keys absent from the file
// keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// resolvePaths expands "~" and fills in the default data directory.
func (c *Config) resolvePaths(lookupEnv func(string) (string, bool)) error {
	if c.Cache.Directory == "" {
		dir, err := GetDataDir(lookupEnv)
		if err != nil {
			return err
		}
		c.Cache.Directory = dir
	}

	var err error
	if c.Cache.Directory, err = ExpandHome(c.Cache.Directory); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandHome(c.Logging.File); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for values the cache cannot run with.
func (c *Config) Validate() error {
	if c.Cache.MaxItems <= 0 {
		return fmt.Errorf("cache.max_items must be positive, got %d", c.Cache.MaxItems)
	}
	if err := cache.ValidateTTL(c.Cache.DefaultTTL); err != nil {
		return fmt.Errorf("cache.default_ttl: %w", err)
	}
	if strings.TrimSpace(c.Cache.Namespace) == "" || strings.ContainsAny(c.Cache.Namespace, `/\:`) {
		return fmt.Errorf("cache.namespace %q is not a valid blob name", c.Cache.Namespace)
	}
	if c.Cache.PersistFailureLimit < 0 {
		return fmt.Errorf("cache.persist_failure_limit must be >= 0, got %d", c.Cache.PersistFailureLimit)
	}
	if c.Cache.PruneInterval < 0 {
		return fmt.Errorf("cache.prune_interval must be >= 0, got %s", c.Cache.PruneInterval)
	}
	if c.Fetch.Concurrency < 0 {
		return fmt.Errorf("fetch.concurrency must be >= 0, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must be >= 0, got %s", c.Fetch.Timeout)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("logging.format must be %q or %q, got %q",
			logging.FormatConsole, logging.FormatJSON, c.Logging.Format)
	}
	return nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Fetch.Token != "" {
		out.Fetch.Token = redacted
	}
	return &out
}
