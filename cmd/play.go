package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/logging"
	"github.com/llehouerou/cadence/internal/lyriccursor"
	"github.com/llehouerou/cadence/internal/mpris"
	"github.com/llehouerou/cadence/internal/notify"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/session"
)

type playFlags struct {
	mode    string
	volume  float64
	noMPRIS bool
	fresh   bool
}

// PlayCmd plays files, directories, playlists or stream URLs. Without
// arguments the saved session is resumed.
func PlayCmd(global *globalFlags) *cobra.Command {
	flags := &playFlags{}
	c := &cobra.Command{
		Use:   "play [file|dir|playlist.json|url]...",
		Short: "Play music with synchronized lyrics",
		Long: "Plays the given files, directories, JSON playlists or http(s) streams.\n" +
			"Without arguments the previous session is resumed.\n" +
			"Type ? and enter for the list of commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, global, flags, args)
		},
	}
	c.Flags().StringVarP(&flags.mode, "mode", "m", "", "play mode: list, single or random")
	c.Flags().Float64Var(&flags.volume, "volume", -1, "initial volume between 0 and 1")
	c.Flags().BoolVar(&flags.noMPRIS, "no-mpris", false, "do not register as an MPRIS media player")
	c.Flags().BoolVar(&flags.fresh, "fresh", false, "ignore the saved session")
	return c
}

func runPlay(cmd *cobra.Command, global *globalFlags, flags *playFlags, args []string) error {
	a, err := newApp(global)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.GetLogConfig().File != "" {
		// audio backends write to stderr; keep the terminal clean
		if capture, err := logging.CaptureStderr(a.log); err == nil {
			defer capture.Stop()
		} else {
			a.log.WithError(err).Debug("stderr capture unavailable")
		}
	}

	var songs []playlist.Song
	if len(args) > 0 {
		if songs, err = playlist.CollectFromPaths(args); err != nil {
			return errors.New(errmsg.Format(errmsg.OpFileLoad, err))
		}
		if len(songs) == 0 {
			return errors.New("no playable files found")
		}
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	source, err := a.newLyricsSource()
	if err != nil {
		return err
	}

	pc := a.cfg.GetPlaybackConfig()
	lc := a.cfg.GetLyricsConfig()
	cc := a.cfg.GetCursorConfig()

	out := cmd.OutOrStdout()
	printer := newLyricPrinter(out)

	engine := playback.New(playback.Options{
		HistorySize: pc.HistorySize,
		Logger:      a.log,
	})
	sess := session.New(session.Options{
		Engine: engine,
		Lyrics: source,
		Store:  store,
		Cursor: lyriccursor.Config{
			Offset:    lc.Offset(),
			ScaleStep: cc.ScaleStep,
			MinScale:  cc.MinScale,
			MaxScale:  cc.MaxScale,
		},
		Scroller:         printer,
		ShowTranslation:  *lc.ShowTranslation,
		ShowRomanization: *lc.ShowRomanization,
		Logger:           a.log,
	})
	defer func() {
		if err := sess.Close(); err != nil {
			a.log.WithError(err).Warn(errmsg.Format(errmsg.OpSessionSave, err))
		}
		a.store = nil
	}()

	if err := prepareSession(sess, pc, flags, songs, a.log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runDone := make(chan error, 1)
	go func() { runDone <- sess.Run(ctx) }()

	if a.cfg.MPRISEnabled() && !flags.noMPRIS {
		adapter, err := mpris.New(ctx, sess, a.log)
		if err != nil {
			a.log.WithError(err).Warn(errmsg.Format(errmsg.OpMPRISStart, err))
		} else {
			defer adapter.Close()
		}
	}

	if a.cfg.NotifyEnabled() {
		go notify.Watch(ctx, sess.Subscribe(), notify.New(), a.log)
	}

	printer.start(ctx, sess)
	sess.Play(ctx)

	ctl := &controller{sess: sess, out: out}
	lines := readLines(ctx, cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			stop()
			return <-runDone
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep playing until interrupted
				lines = nil
				continue
			}
			if err := ctl.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					stop()
					return <-runDone
				}
				fmt.Fprintln(out, err)
			}
		}
	}
}

// prepareSession resumes the saved session when no songs were given and
// --fresh is unset; otherwise it starts from the config defaults. Flags
// override both.
func prepareSession(sess *session.Session, pc config.PlaybackConfig, flags *playFlags, songs []playlist.Song, log logrus.FieldLogger) error {
	restored := false
	if !flags.fresh && len(songs) == 0 {
		var err error
		if restored, err = sess.Restore(); err != nil {
			log.WithError(err).Warn(errmsg.Format(errmsg.OpSessionLoad, err))
		}
	}
	if !restored {
		mode, _ := playlist.ParseMode(pc.Mode)
		sess.SetPlayMode(mode)
		sess.SetVolume(*pc.Volume)
	}
	if flags.mode != "" {
		mode, ok := playlist.ParseMode(flags.mode)
		if !ok {
			return fmt.Errorf("unknown play mode %q", flags.mode)
		}
		sess.SetPlayMode(mode)
	}
	if flags.volume >= 0 {
		sess.SetVolume(flags.volume)
	}
	if len(songs) > 0 {
		sess.SetPlaylist(songs, 0)
	}
	if len(sess.Snapshot().Playlist) == 0 {
		return errors.New("nothing to play: pass files or directories")
	}
	return nil
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// lyricPrinter prints the active lyric line and track changes. ScrollTo is
// called under the session lock, so it only records the index and the
// printing goroutine reads the view.
type lyricPrinter struct {
	out   io.Writer
	index chan int
}

var _ lyriccursor.Scroller = (*lyricPrinter)(nil)

func newLyricPrinter(out io.Writer) *lyricPrinter {
	return &lyricPrinter{out: out, index: make(chan int, 1)}
}

func (p *lyricPrinter) ScrollTo(index int, _ bool) {
	select {
	case p.index <- index:
	default:
		// replace the pending index with the newer one
		select {
		case <-p.index:
		default:
		}
		select {
		case p.index <- index:
		default:
		}
	}
}

func (p *lyricPrinter) start(ctx context.Context, sess *session.Session) {
	sub := sess.Subscribe()
	go func() {
		last := ""
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done:
				return
			case tc := <-sub.TrackChanged:
				last = ""
				if tc.Current != nil {
					fmt.Fprintf(p.out, "\n▶ %s\n", songLabel(*tc.Current))
				}
			case ev := <-sub.Error:
				msg := sess.View().Error
				if msg == "" {
					msg = ev.Err.Error()
				}
				fmt.Fprintln(p.out, msg)
			case <-p.index:
				v := sess.View()
				if v.ActiveLine == "" || v.ActiveLine == last {
					continue
				}
				last = v.ActiveLine
				fmt.Fprintf(p.out, "  %s\n", indent(v.ActiveLine, 2))
			}
		}
	}()
}
