package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local result cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show cache location, entry count and disk usage",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(root, observability.NewUnregisteredMetrics(), false)
				if err != nil {
					return err
				}
				defer a.Close()

				entries, size, err := a.cache.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Directory: %s\n", a.cache.Dir())
				fmt.Fprintf(out, "Entries:   %s\n", humanize.Comma(int64(entries)))
				fmt.Fprintf(out, "Size:      %s\n", humanize.Bytes(size))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every cached result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(root, observability.NewUnregisteredMetrics(), false)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.client.ClearCache(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", a.cache.Dir())
				return nil
			},
		},
	)
	return cmd
}
