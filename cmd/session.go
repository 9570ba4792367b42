package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/state"
)

// SessionCmd shows the saved playback session.
func SessionCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the saved playback session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			saved, err := store.GetSession()
			if err != nil {
				return err
			}
			printSession(cmd, saved)
			return nil
		},
	}
}

func printSession(cmd *cobra.Command, s *state.Session) {
	out := cmd.OutOrStdout()
	if s == nil {
		fmt.Fprintln(out, "no saved session")
		return
	}

	muted := ""
	if s.Muted {
		muted = " (muted)"
	}
	fmt.Fprintf(out, "mode: %s  volume: %d%%%s  history: %d\n",
		s.Mode, int(s.Volume*100+0.5), muted, len(s.History))
	if len(s.Original) > 0 {
		fmt.Fprintf(out, "shuffled from an order of %d songs\n", len(s.Original))
	}
	for i, song := range s.Playlist {
		marker := "  "
		if i == s.CurrentIndex {
			marker = "> "
		}
		fmt.Fprintf(out, "%s%3d. %s  %s\n", marker, i+1, songLabel(song), durationLabel(song))
	}
}

func durationLabel(s playlist.Song) string {
	if s.Duration <= 0 {
		return ""
	}
	return playlist.FormatDuration(s.Duration)
}
