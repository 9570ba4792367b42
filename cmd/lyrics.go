package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/lyrics"
	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/session"
)

type lyricsFlags struct {
	translation      string
	romanization     string
	showTranslation  bool
	showRomanization bool
	id               string
}

// LyricsCmd prints the merged lyrics of an .lrc file or of a song.
func LyricsCmd(global *globalFlags) *cobra.Command {
	flags := &lyricsFlags{}
	c := &cobra.Command{
		Use:   "lyrics <file.lrc|song>",
		Short: "Print merged lyrics",
		Long: "Prints the lyrics of an .lrc file, merging optional translation and\n" +
			"romanization files, or resolves the lyrics of a song through its sidecar\n" +
			"file, the cache and the configured provider.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLyrics(cmd, global, flags, args[0])
		},
	}
	c.Flags().StringVar(&flags.translation, "translation", "", "translation .lrc file to merge")
	c.Flags().StringVar(&flags.romanization, "romanization", "", "romanization .lrc file to merge")
	c.Flags().BoolVarP(&flags.showTranslation, "show-translation", "t", true, "print translated lines")
	c.Flags().BoolVarP(&flags.showRomanization, "show-romanization", "r", false, "print romanized lines")
	c.Flags().StringVar(&flags.id, "id", "", "provider song ID used for lookup")
	return c
}

func runLyrics(cmd *cobra.Command, global *globalFlags, flags *lyricsFlags, target string) error {
	a, err := newApp(global)
	if err != nil {
		return err
	}
	defer a.Close()

	var doc lyrics.Document
	if strings.EqualFold(filepath.Ext(target), ".lrc") {
		doc, err = mergeFiles(target, flags.translation, flags.romanization, a.cfg.GetLyricsConfig().Tolerance())
		if err != nil {
			return err
		}
	} else {
		source, err := a.newLyricsSource()
		if err != nil {
			return err
		}
		song := songFor(target)
		ref := session.TrackRef(song)
		if flags.id != "" {
			ref.ID = flags.id
		}
		res := source.Fetch(cmd.Context(), ref)
		if res.Err != nil {
			return errors.New(errmsg.FormatWith(errmsg.OpLyricsFetch, song.Title, res.Err))
		}
		a.log.WithField("origin", res.Origin).Debug("lyrics resolved")
		doc = res.Document
	}

	out := cmd.OutOrStdout()
	for _, l := range lyrics.Compose(doc.Lines, flags.showTranslation, flags.showRomanization) {
		fmt.Fprintf(out, "%s %s\n", formatTimestamp(l.Time), indent(l.Text, 11))
	}
	return nil
}

func mergeFiles(original, translation, romanization string, tolerance time.Duration) (lyrics.Document, error) {
	var raw lyrics.RawTracks
	var err error
	if raw.Original, err = readText(original); err != nil {
		return lyrics.Document{}, err
	}
	if raw.Translation, err = readText(translation); err != nil {
		return lyrics.Document{}, err
	}
	if raw.Romanization, err = readText(romanization); err != nil {
		return lyrics.Document{}, err
	}
	return lyrics.Build(lyrics.ParseTracks(raw), tolerance), nil
}

func readText(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func songFor(target string) playlist.Song {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return playlist.FromURL(target)
	}
	return playlist.FromPath(target)
}
