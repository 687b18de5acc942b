package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/storecache/internal/cache"
)

// ErrCacheMiss is returned by get when the key holds no live entry.
var ErrCacheMiss = errors.New("cache miss")

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code   int
	Reason string
	Err    error

	// Silent suppresses the error message; only the exit code matters.
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func newGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the cached JSON payload for a key",
		Example: `  storecache get products:featured
  storecache get products:featured | jq .`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, ok := s.cache(cmd).Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", ErrCacheMiss, args[0])
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newSetCmd(s *session) *cobra.Command {
	var ttlFlag string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a value under a key",
		Long: `Store a value under a key. VALUE is parsed as JSON when valid and
stored as a plain string otherwise.`,
		Example: `  storecache set products:featured '["p1","p2"]'
  storecache set banner "Summer sale" --ttl 1h
  storecache set session:42 '{"cart":[]}' --ttl 90000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := parseTTLFlag(ttlFlag)
			if err != nil {
				return err
			}

			key := args[0]
			value := parseValue(args[1])
			m := s.cache(cmd)
			if err = m.SetWithTTL(key, value, ttl); err != nil {
				return err
			}

			if ttl <= 0 {
				ttl = m.DefaultTTL()
			}
			s.logger.Debug().Ctx(cmd.Context()).Str("key", key).Dur("ttl", ttl).Msg("value cached")
			cmd.Printf("cached %s for %s\n", key, cache.FormatDuration(ttl))
			return nil
		},
	}

	cmd.Flags().StringVar(&ttlFlag, "ttl", "", "TTL for this entry as duration or milliseconds (default: cache default)")
	return cmd
}

func newDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"rm"},
		Short:   "Remove a key from the cache",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s.cache(cmd).Delete(args[0])
			cmd.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newClearCmd(s *session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry and the persisted cache file",
		Long: `Remove every entry and the persisted cache file. On a terminal the command
asks for confirmation unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := s.cache(cmd)
			n := m.Len()

			if !yes && n > 0 && isTerminal(os.Stdin) {
				answer := Confirm(cmd.OutOrStdout(), cmd.InOrStdin(), fmt.Sprintf("Remove %d cached entries?", n))
				if !answer.Accepted {
					cmd.Println("aborted")
					return nil
				}
			}

			m.Clear()
			cmd.Printf("cleared %d entries\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newHasCmd(s *session) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "has KEY",
		Short: "Report whether a key holds a live entry",
		Example: `  storecache has products:featured
  storecache has products:featured --quiet || storecache fetch /products/featured`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found := s.cache(cmd).Has(args[0])
			if quiet {
				if !found {
					return &ExitError{Code: 1, Reason: "not cached: " + args[0], Silent: true}
				}
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(found))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing; exit 1 when the key is not cached")
	return cmd
}

func newPruneCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := s.cache(cmd).Prune()
			cmd.Printf("pruned %d expired entries\n", n)
			return nil
		},
	}
}

// parseTTLFlag parses an optional per-command TTL. Empty means the cache default.
func parseTTLFlag(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	ttl, err := cache.ParseTTL(v)
	if err != nil {
		return 0, fmt.Errorf("--ttl: %w", err)
	}
	return ttl, nil
}

// parseValue interprets a command-line value as JSON, falling back to a string.
func parseValue(raw string) any {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}
