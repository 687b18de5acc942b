package config

import (
	"strconv"

	"github.com/rshade/storecache/internal/cache"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvHome          = "STORECACHE_HOME"
	EnvCacheTTL      = "STORECACHE_CACHE_TTL"
	EnvCacheMaxItems = "STORECACHE_CACHE_MAX_ITEMS"
	EnvCacheDir      = "STORECACHE_CACHE_DIR"
	EnvCacheEnabled  = "STORECACHE_CACHE_ENABLED"
	EnvLogLevel      = "STORECACHE_LOG_LEVEL"
	EnvLogFormat     = "STORECACHE_LOG_FORMAT"
	EnvAPIToken      = "STORECACHE_API_TOKEN"
	EnvAPIBaseURL    = "STORECACHE_API_BASE_URL"
)

// ApplyEnv overrides configuration values from the environment.
// Unparseable or out-of-range values are ignored and the current value kept.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) {
	if v, ok := lookupEnv(EnvCacheTTL); ok && v != "" {
		if ttl, err := cache.ParseTTL(v); err == nil {
			c.Cache.DefaultTTL = ttl
		}
	}

	if v, ok := lookupEnv(EnvCacheMaxItems); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxItems = n
		}
	}

	if v, ok := lookupEnv(EnvCacheDir); ok && v != "" {
		c.Cache.Directory = v
	}

	if v, ok := lookupEnv(EnvCacheEnabled); ok && v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Cache.Persist = enabled
		}
	}

	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}

	if v, ok := lookupEnv(EnvLogFormat); ok && v != "" {
		c.Logging.Format = v
	}

	if v, ok := lookupEnv(EnvAPIToken); ok && v != "" {
		c.Fetch.Token = v
	}

	if v, ok := lookupEnv(EnvAPIBaseURL); ok && v != "" {
		c.Fetch.BaseURL = v
	}
}
