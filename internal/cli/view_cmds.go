package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/storecache/internal/cache"
	"github.com/rshade/storecache/internal/cli/pagination"
	"github.com/rshade/storecache/internal/tui"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (use %q or %q)", format, outputTable, outputJSON)
	}
}

func newListCmd(s *session) *cobra.Command {
	var (
		output string
		page   pagination.Params
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List live cache entries",
		Long: `List live cache entries, oldest first. Use --sort with one of
created, expires, key or size, optionally suffixed with :asc or :desc.`,
		Example: `  storecache list
  storecache list --sort expires --limit 10
  storecache list --sort size:desc --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			if err := page.Validate(); err != nil {
				return err
			}

			m := s.cache(cmd)
			entries, err := pagination.SortEntries(m.Entries(), page.Sort)
			if err != nil {
				return err
			}
			entries = pagination.Apply(entries, page.Offset, page.Limit)
			return renderEntries(cmd.OutOrStdout(), entries, m.Now(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	cmd.Flags().StringVar(&page.Sort, "sort", "", "sort by field[:asc|desc] (created, expires, key, size)")
	cmd.Flags().IntVar(&page.Limit, "limit", 0, "maximum number of entries to show (0 = all)")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "number of entries to skip")
	return cmd
}

func renderEntries(w io.Writer, entries []cache.Entry, now time.Time, output string) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	_, err := io.WriteString(w, tui.RenderEntryList(entries, now))
	return err
}

func newStatsCmd(s *session) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and activity counters",
		Long: `Show cache size and activity counters. Counters cover this invocation
only; size reflects the entries restored from the persisted cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}

			m := s.cache(cmd)
			stats := m.Stats()
			if output == outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			renderStats(cmd.OutOrStdout(), stats, m)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func renderStats(w io.Writer, stats cache.Stats, m *cache.Manager) {
	p := message.NewPrinter(language.English)

	persisting := "yes"
	if !stats.Persisting {
		persisting = "disabled"
	}

	_, _ = p.Fprintf(w, "%s\n", tui.HeaderStyle.Render("CACHE STATS"))
	_, _ = p.Fprintf(w, "Namespace:         %s\n", m.Namespace())
	_, _ = p.Fprintf(w, "Entries:           %d / %d\n", stats.Size, stats.MaxItems)
	_, _ = p.Fprintf(w, "Default TTL:       %s\n", cache.FormatDuration(m.DefaultTTL()))
	_, _ = p.Fprintf(w, "Hits:              %d\n", stats.Hits)
	_, _ = p.Fprintf(w, "Misses:            %d\n", stats.Misses)
	_, _ = p.Fprintf(w, "Hit ratio:         %.1f%%\n", stats.HitRatio()*100)
	_, _ = p.Fprintf(w, "Sets:              %d\n", stats.Sets)
	_, _ = p.Fprintf(w, "Deletes:           %d\n", stats.Deletes)
	_, _ = p.Fprintf(w, "Expirations:       %d\n", stats.Expirations)
	_, _ = p.Fprintf(w, "Evictions:         %d\n", stats.Evictions)
	_, _ = p.Fprintf(w, "Persist failures:  %d\n", stats.PersistFailures)
	_, _ = p.Fprintf(w, "Persistence:       %s\n", persisting)
}

func newInspectCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Browse cache entries interactively",
		Long: `Browse live cache entries in an interactive table. Press enter to view an
entry, d to delete it, r to refresh and q to quit. When stdout is not a
terminal the entries are printed as with list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := s.cache(cmd)
			if !isTerminal(os.Stdout) {
				return renderEntries(cmd.OutOrStdout(), m.Entries(), m.Now(), outputTable)
			}

			p := tea.NewProgram(tui.NewInspectModel(m), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running inspect view: %w", err)
			}
			return nil
		},
	}
}
