package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/storecache/internal/cache"
	"github.com/rshade/storecache/internal/config"
	"github.com/rshade/storecache/internal/logging"
	"github.com/rshade/storecache/internal/storage"
)

// session carries the state built once per command invocation.
type session struct {
	lookupEnv func(string) (string, bool)
	flags     rootFlags

	cfg     *config.Config
	logger  zerolog.Logger
	logs    logging.LogPathResult
	manager *cache.Manager
	janitor *cache.Janitor
}

// setup loads configuration, applies flag overrides and configures logging.
// The cache manager itself is built lazily by cache().
func (s *session) setup(cmd *cobra.Command) error {
	cfg, err := s.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err = s.applyFlags(cfg); err != nil {
		return err
	}
	s.cfg = cfg

	s.setupLogging(cmd)
	return nil
}

func (s *session) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := s.flags.configPath
	if path != "" && cmd.Annotations[annotationConfigOptional] == "true" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path, s.lookupEnv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// applyFlags layers command-line overrides on top of file and env config.
func (s *session) applyFlags(cfg *config.Config) error {
	if s.flags.ttl != "" {
		ttl, err := cache.ParseTTL(s.flags.ttl)
		if err != nil {
			return fmt.Errorf("--ttl: %w", err)
		}
		cfg.Cache.DefaultTTL = ttl
	}
	if s.flags.maxItems > 0 {
		cfg.Cache.MaxItems = s.flags.maxItems
	}
	if s.flags.dir != "" {
		dir, err := config.ExpandHome(s.flags.dir)
		if err != nil {
			return err
		}
		cfg.Cache.Directory = dir
	}
	if s.flags.namespace != "" {
		cfg.Cache.Namespace = s.flags.namespace
	}
	if s.flags.noPersist {
		cfg.Cache.Persist = false
	}
	return cfg.Validate()
}

// setupLogging configures logging based on config file, environment, and CLI flags.
func (s *session) setupLogging(cmd *cobra.Command) {
	if s.flags.debug {
		s.cfg.Logging.Level = "debug"
		s.cfg.Logging.Format = logging.FormatConsole
		s.cfg.Logging.File = ""
	}

	if s.cfg.Logging.File != "" {
		if err := s.cfg.EnsureLogDir(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	s.logs = logging.NewLoggerWithPath(s.cfg.Logging.ToLoggingConfig())
	s.logger = logging.ComponentLogger(s.logs.Logger, "cli")

	if s.logs.UsingFile && s.flags.debug {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), s.logs.FilePath)
	} else if s.logs.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), s.logs.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = s.logger.With().Str(logging.TraceIDField, traceID).Logger().WithContext(ctx)
	cmd.SetContext(ctx)

	s.logger.Debug().Ctx(ctx).Str("command", cmd.Name()).Msg("command started")
}

// cache returns the manager for this invocation, building it on first use.
// A data directory that cannot be created degrades to an in-memory cache.
func (s *session) cache(cmd *cobra.Command) *cache.Manager {
	if s.manager != nil {
		return s.manager
	}

	cc := s.cfg.Cache
	log := logging.ComponentLogger(s.logs.Logger, "cache")

	var store storage.Storage = storage.NewMemoryStorage()
	if cc.Persist {
		if err := s.cfg.EnsureDataDir(); err != nil {
			log.Warn().Err(err).Str("dir", cc.Directory).Msg("cannot prepare cache directory, running without persistence")
		} else if fs, err := storage.NewFileStorage(cc.Directory); err != nil {
			log.Warn().Err(err).Str("dir", cc.Directory).Msg("cannot open cache directory, running without persistence")
		} else {
			store = fs
		}
	}

	s.manager = cache.New(
		cache.WithStorage(store),
		cache.WithNamespace(cc.Namespace),
		cache.WithDefaultTTL(cc.DefaultTTL),
		cache.WithMaxItems(cc.MaxItems),
		cache.WithCoalescing(cc.Coalesce),
		cache.WithPersistFailureLimit(cc.PersistFailureLimit),
		cache.WithLogger(log),
	)

	if cc.PruneInterval > 0 {
		s.janitor = cache.NewJanitor(s.manager, cc.PruneInterval)
		s.janitor.Start(cmd.Context())
	}
	return s.manager
}

// close stops background work and releases the log file. It is safe to
// call more than once.
func (s *session) close(cmd *cobra.Command) error {
	if s.janitor != nil {
		s.janitor.Stop()
		s.janitor = nil
	}
	s.logger.Debug().Ctx(cmd.Context()).Str("command", cmd.Name()).Msg("command finished")
	return s.logs.Close()
}
