package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd builds the cadence command tree.
func RootCmd(version string) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "cadence",
		Short:        "Music player with synchronized lyrics",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/cadence/config.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		PlayCmd(flags),
		LyricsCmd(flags),
		SessionCmd(flags),
		CacheCmd(flags),
	)
	return root
}
