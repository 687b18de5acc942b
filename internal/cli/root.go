package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/storecache/internal/cache"
)

// annotationConfigOptional marks commands that run even when --config points
// at a file that does not exist yet.
const annotationConfigOptional = "storecache/config-optional"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	debug      bool
	dir        string
	namespace  string
	ttl        string
	maxItems   int
	noPersist  bool
}

// NewRootCmd creates the root Cobra command for the storecache CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithArgs(ver, os.LookupEnv)
}

// NewRootCmdWithArgs creates the root command with an explicit env lookup for testability.
func NewRootCmdWithArgs(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	s := &session{lookupEnv: lookupEnv}

	cmd := &cobra.Command{
		Use:           "storecache",
		Short:         "Persistent TTL cache for storefront API data",
		Long:          "storecache: inspect, populate and maintain the persistent TTL cache used for storefront REST data",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if s.flags.maxItems < 0 {
				return fmt.Errorf("max-items must be >= 0, got %d", s.flags.maxItems)
			}
			return s.setup(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&s.flags.configPath, "config", "", "path to config file (default $STORECACHE_HOME/config.yaml)")
	f.BoolVar(&s.flags.debug, "debug", false, "enable debug logging")
	f.StringVar(&s.flags.dir, "dir", "", "directory holding the persisted cache (overrides config and env)")
	f.StringVar(&s.flags.namespace, "namespace", "", "name of the persisted cache blob")
	f.StringVar(&s.flags.ttl, "ttl", "",
		fmt.Sprintf("default TTL as duration or milliseconds (default %s)", cache.FormatDuration(cache.DefaultTTL)))
	f.IntVar(&s.flags.maxItems, "max-items", 0, "maximum number of cached keys (0 = use config)")
	f.BoolVar(&s.flags.noPersist, "no-persist", false, "keep the cache in memory only for this invocation")

	cmd.AddCommand(
		newGetCmd(s),
		newSetCmd(s),
		newDeleteCmd(s),
		newClearCmd(s),
		newHasCmd(s),
		newPruneCmd(s),
		newListCmd(s),
		newStatsCmd(s),
		newFetchCmd(s),
		newWarmCmd(s),
		newInspectCmd(s),
		newConfigCmd(s),
		newVersionCmd(ver),
	)
	closeAfterRun(s, cmd)

	return cmd
}

// closeAfterRun wraps the RunE of c and its subcommands so the session is
// closed whether or not the command fails. Cobra skips post-run hooks after
// a RunE error.
func closeAfterRun(s *session, c *cobra.Command) {
	for _, sub := range c.Commands() {
		closeAfterRun(s, sub)
	}
	if c.RunE == nil {
		return
	}

	run := c.RunE
	c.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := s.close(cmd); err == nil {
				err = closeErr
			}
		}()
		return run(cmd, args)
	}
}

const rootCmdExample = `  # Cache a value for ten minutes
  storecache set products:featured '["p1","p2"]' --ttl 10m

  # Read it back
  storecache get products:featured

  # Fetch a storefront endpoint through the cache
  storecache fetch /products --query category=shoes

  # Populate several endpoints at once
  storecache warm warm.yaml

  # Browse cached entries
  storecache inspect

  # Drop expired entries, or everything
  storecache prune
  storecache clear`
