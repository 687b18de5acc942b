package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rshade/storecache/internal/config"
)

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage storecache configuration",
	}
	cmd.AddCommand(newConfigInitCmd(s), newConfigShowCmd(s), newConfigPathCmd(s))
	return cmd
}

// configPath returns --config or the default config file location.
func (s *session) configPath() (string, error) {
	if s.flags.configPath != "" {
		return config.ExpandHome(s.flags.configPath)
	}
	return config.DefaultConfigPath(s.lookupEnv)
}

func newConfigInitCmd(s *session) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: `Creates a configuration file with default values and prepares the cache
data directory, including a .gitignore that keeps persisted cache files out
of version control.`,
		Example: `  # Create $STORECACHE_HOME/config.yaml
  storecache config init

  # Create a config file elsewhere, overwriting an existing one
  storecache config init --config ./storecache.yaml --force`,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := s.configPath()
			if err != nil {
				return err
			}

			if !force {
				_, statErr := os.Stat(path)
				if statErr == nil {
					return errors.New("configuration file already exists, use --force to overwrite")
				}
				if !os.IsNotExist(statErr) {
					return fmt.Errorf("cannot access config path %s: %w", path, statErr)
				}
			}

			if err = config.New().Save(path); err != nil {
				return err
			}
			if err = s.cfg.EnsureDataDir(); err != nil {
				cmd.PrintErrf("Warning: could not prepare data directory: %v\n", err)
			}

			cmd.Printf("Configuration written to %s\n", path)
			cmd.Printf("Cache data directory: %s\n", s.cfg.Cache.Directory)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	return cmd
}

func newConfigShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Prints the configuration after defaults, the config file, environment
variables and flags have been applied. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s.cfg.Redacted()); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		},
	}
}

func newConfigPathCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Annotations: map[string]string{annotationConfigOptional: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := s.configPath()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
