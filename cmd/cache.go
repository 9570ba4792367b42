package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CacheCmd groups lyric cache maintenance commands.
func CacheCmd(global *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "cache",
		Short: "Manage the lyrics cache",
	}
	c.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Remove expired lyrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			lc, err := a.openCache()
			if err != nil {
				return err
			}
			if lc == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "lyrics cache is disabled")
				return nil
			}
			n, err := lc.Prune()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries, %d left\n", n, lc.Len())
			return nil
		},
	})
	return c
}
