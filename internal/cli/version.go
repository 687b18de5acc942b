package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/storecache/pkg/version"
)

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "storecache %s (cache format %s)\n", ver, version.FormatVersion)
			return nil
		},
	}
}
