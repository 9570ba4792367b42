package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/session"
)

const (
	volumeStep = 0.05
	seekStep   = 10 * time.Second
)

var errQuit = errors.New("quit")

// controller maps typed commands onto a session.
type controller struct {
	sess *session.Session
	out  io.Writer
}

type command struct {
	names []string
	usage string
	run   func(ctx context.Context, c *controller, args []string) error
}

var commands = []command{
	{[]string{"p", "play", "pause"}, "toggle play/pause", func(ctx context.Context, c *controller, _ []string) error {
		c.sess.TogglePlay(ctx)
		return nil
	}},
	{[]string{"n", "next"}, "next song", func(ctx context.Context, c *controller, _ []string) error {
		c.sess.NextSong(ctx)
		return nil
	}},
	{[]string{"b", "prev"}, "previous song", func(ctx context.Context, c *controller, _ []string) error {
		c.sess.PreviousSong(ctx)
		return nil
	}},
	{[]string{"s", "stop"}, "stop", func(_ context.Context, c *controller, _ []string) error {
		c.sess.Stop()
		return nil
	}},
	{[]string{"g", "goto"}, "goto <n>: play song n of the playlist", func(ctx context.Context, c *controller, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		c.sess.PlayIndex(ctx, n-1)
		return nil
	}},
	{[]string{"m", "mode"}, "cycle play mode", func(_ context.Context, c *controller, _ []string) error {
		fmt.Fprintf(c.out, "mode: %s\n", c.sess.TogglePlayMode())
		return nil
	}},
	{[]string{"shuffle"}, "shuffle the playlist", func(_ context.Context, c *controller, _ []string) error {
		c.sess.ShufflePlaylist()
		return nil
	}},
	{[]string{"+"}, "volume up", func(_ context.Context, c *controller, _ []string) error {
		c.sess.SetVolume(c.sess.Snapshot().Volume + volumeStep)
		return nil
	}},
	{[]string{"-"}, "volume down", func(_ context.Context, c *controller, _ []string) error {
		c.sess.SetVolume(c.sess.Snapshot().Volume - volumeStep)
		return nil
	}},
	{[]string{"mute"}, "toggle mute", func(_ context.Context, c *controller, _ []string) error {
		c.sess.ToggleMute()
		return nil
	}},
	{[]string{">"}, "seek forward", func(_ context.Context, c *controller, _ []string) error {
		c.sess.SetCurrentTime(c.sess.Snapshot().Position + seekStep)
		return nil
	}},
	{[]string{"<"}, "seek back", func(_ context.Context, c *controller, _ []string) error {
		c.sess.SetCurrentTime(c.sess.Snapshot().Position - seekStep)
		return nil
	}},
	{[]string{"seek"}, "seek <mm:ss|percent%>", func(_ context.Context, c *controller, args []string) error {
		if len(args) != 1 {
			return errors.New("usage: seek <mm:ss|percent%>")
		}
		if pct, ok := strings.CutSuffix(args[0], "%"); ok {
			v, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return fmt.Errorf("invalid percentage %q", args[0])
			}
			c.sess.SetProgress(v)
			return nil
		}
		d, err := parseClock(args[0])
		if err != nil {
			return err
		}
		c.sess.SetCurrentTime(d)
		return nil
	}},
	{[]string{"line"}, "line <n>: seek to lyric line n", func(_ context.Context, c *controller, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return c.sess.SeekToLine(n - 1)
	}},
	{[]string{"offset"}, "offset <ms>: shift lyric timing", func(_ context.Context, c *controller, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		c.sess.SetLyricOffset(time.Duration(n) * time.Millisecond)
		return nil
	}},
	{[]string{"r", "refresh"}, "reload lyrics", func(ctx context.Context, c *controller, _ []string) error {
		c.sess.RefreshLyrics(ctx)
		return nil
	}},
	{[]string{"t"}, "toggle translation", func(_ context.Context, c *controller, _ []string) error {
		fmt.Fprintf(c.out, "translation: %s\n", onOff(c.sess.ToggleTranslation()))
		return nil
	}},
	{[]string{"o"}, "toggle romanization", func(_ context.Context, c *controller, _ []string) error {
		fmt.Fprintf(c.out, "romanization: %s\n", onOff(c.sess.ToggleRomanization()))
		return nil
	}},
	{[]string{"a"}, "toggle lyric auto-scroll", func(_ context.Context, c *controller, _ []string) error {
		fmt.Fprintf(c.out, "auto-scroll: %s\n", onOff(c.sess.ToggleAutoScroll()))
		return nil
	}},
	{[]string{"ls", "list"}, "show the playlist", func(_ context.Context, c *controller, _ []string) error {
		c.printPlaylist()
		return nil
	}},
	{[]string{"i", "info"}, "show the current song", func(_ context.Context, c *controller, _ []string) error {
		c.printStatus()
		return nil
	}},
	{[]string{"lyrics"}, "print all lyric lines", func(_ context.Context, c *controller, _ []string) error {
		v := c.sess.View()
		for i, l := range v.Lines {
			marker := "  "
			if i == v.ActiveIndex {
				marker = "> "
			}
			fmt.Fprintf(c.out, "%s%s %s\n", marker, formatTimestamp(l.Time), indent(l.Text, 13))
		}
		return nil
	}},
	{[]string{"clear"}, "clear the playlist", func(_ context.Context, c *controller, _ []string) error {
		c.sess.ClearPlaylist()
		return nil
	}},
	{[]string{"q", "quit"}, "quit", func(context.Context, *controller, []string) error {
		return errQuit
	}},
}

// exec runs one input line. It returns errQuit when the user asked to quit.
func (c *controller) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.sess.TogglePlay(ctx)
		return nil
	}
	name, args := fields[0], fields[1:]
	if name == "?" || name == "help" {
		c.printHelp()
		return nil
	}
	for _, cmd := range commands {
		for _, n := range cmd.names {
			if n == name {
				return cmd.run(ctx, c, args)
			}
		}
	}
	return fmt.Errorf("unknown command %q (? for help)", name)
}

func (c *controller) printHelp() {
	for _, cmd := range commands {
		fmt.Fprintf(c.out, "  %-14s %s\n", strings.Join(cmd.names, ", "), cmd.usage)
	}
}

func (c *controller) printPlaylist() {
	snap := c.sess.Snapshot()
	if len(snap.Playlist) == 0 {
		fmt.Fprintln(c.out, "playlist is empty")
		return
	}
	for i, song := range snap.Playlist {
		marker := "  "
		if i == snap.CurrentIndex {
			marker = "> "
		}
		fmt.Fprintf(c.out, "%s%3d. %s\n", marker, i+1, songLabel(song))
	}
}

func (c *controller) printStatus() {
	v := c.sess.View()
	if v.Current == nil {
		fmt.Fprintln(c.out, "no song selected")
		return
	}
	vol := fmt.Sprintf("%d%%", int(v.Volume*100+0.5))
	if v.Muted {
		vol += " (muted)"
	}
	fmt.Fprintf(c.out, "%s [%s] %s / %s  mode: %s  volume: %s\n",
		songLabel(*v.Current), v.Status,
		playlist.FormatDuration(v.Position), playlist.FormatDuration(v.Duration),
		v.Mode, vol)
	if v.Error != "" {
		fmt.Fprintln(c.out, v.Error)
	}
}

func songLabel(s playlist.Song) string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

func intArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

// parseClock parses "90", "1:30" or "1:02:03".
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	var total time.Duration
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total, nil
}

func formatTimestamp(d time.Duration) string {
	cs := d.Milliseconds() / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", cs/6000, cs/100%60, cs%100)
}

// indent aligns continuation lines of a multi-track lyric line.
func indent(text string, width int) string {
	return strings.ReplaceAll(text, "\n", "\n"+strings.Repeat(" ", width))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
