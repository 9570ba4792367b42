// Package session composes the playback engine, the lyric source, the lyric
// cursor and session persistence behind one command surface.
package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/lyriccursor"
	"github.com/llehouerou/cadence/internal/lyrics"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/state"
)

// ErrNoLine is returned by SeekToLine for an index outside the lyrics.
var ErrNoLine = errors.New("no such lyric line")

// LyricsSource resolves the lyrics document of a track. lyrics.Source
// implements it.
type LyricsSource interface {
	Fetch(ctx context.Context, track lyrics.TrackRef) lyrics.FetchResult
}

// Options configures a Session.
type Options struct {
	Engine playback.Service
	// Lyrics may be nil; songs then show the "no lyrics" sentinel.
	Lyrics LyricsSource
	// Store may be nil to disable persistence.
	Store  state.Interface
	Cursor lyriccursor.Config
	// Scroller is called with the session lock held and must not call
	// back into the session.
	Scroller         lyriccursor.Scroller
	ShowTranslation  bool
	ShowRomanization bool
	Logger           logrus.FieldLogger
}

type lyricsResult struct {
	gen    uint64
	songID string
	res    lyrics.FetchResult
}

// Session owns one engine and the lyrics state of its current song.
// Engine commands are promoted from the embedded Service; Run must be
// running for transport events and lyric results to be applied.
type Session struct {
	playback.Service

	source  LyricsSource
	store   state.Interface
	log     logrus.FieldLogger
	sub     *playback.Subscription
	results chan lyricsResult
	wg      sync.WaitGroup

	mu               sync.Mutex
	cursor           *lyriccursor.Cursor
	doc              lyrics.Document
	docSongID        string
	lyricsGen        uint64
	lyricsLoading    bool
	lyricsOrigin     lyrics.Origin
	lyricsErr        error
	cancelFetch      context.CancelFunc
	position         time.Duration
	showTranslation  bool
	showRomanization bool
}

// New creates a session around opts.Engine and subscribes to its events.
func New(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		Service:          opts.Engine,
		source:           opts.Lyrics,
		store:            opts.Store,
		log:              log.WithField("component", "session"),
		sub:              opts.Engine.Subscribe(),
		results:          make(chan lyricsResult, 1),
		cursor:           lyriccursor.New(opts.Cursor, opts.Scroller),
		showTranslation:  opts.ShowTranslation,
		showRomanization: opts.ShowRomanization,
	}
}

// Restore loads the saved session into the engine. It reports whether a
// session was found.
func (s *Session) Restore() (bool, error) {
	if s.store == nil {
		return false, nil
	}
	saved, err := s.store.GetSession()
	if err != nil {
		return false, err
	}
	if saved == nil {
		return false, nil
	}
	s.Service.Restore(playback.Persisted{
		Playlist:     saved.Playlist,
		Original:     saved.Original,
		CurrentIndex: saved.CurrentIndex,
		Mode:         saved.Mode,
		History:      saved.History,
		Volume:       saved.Volume,
		Muted:        saved.Muted,
	})
	s.log.WithField("songs", len(saved.Playlist)).Info("session restored")
	return true, nil
}

// Run is the session event loop. It applies transport events, keeps the
// lyrics in step with the current song and persists changes until ctx is
// done or the engine is closed.
func (s *Session) Run(ctx context.Context) error {
	defer s.stopLyrics()

	s.syncLyrics(ctx, false)
	for {
		select {
		case <-ctx.Done():
			s.persist()
			return s.flush()
		case <-s.sub.Done:
			return s.flush()
		case ev := <-s.TransportEvents():
			s.HandleEvent(ctx, ev)
			if ev.Kind == player.EventVolumeChange {
				s.persist()
			}
		case <-s.sub.TrackChanged:
			s.syncLyrics(ctx, false)
			s.persist()
		case pc := <-s.sub.PositionChanged:
			s.updateCursor(pc.Position, false)
		case <-s.sub.QueueChanged:
			s.persist()
		case <-s.sub.ModeChanged:
			s.persist()
		case sc := <-s.sub.StateChanged:
			s.log.WithFields(logrus.Fields{
				"from": sc.Previous,
				"to":   sc.Current,
			}).Debug("playback state changed")
		case ev := <-s.sub.Error:
			s.log.WithError(ev.Err).WithFields(logrus.Fields{
				"kind":    ev.Kind,
				"song_id": ev.SongID,
			}).Warn("playback error")
		case r := <-s.results:
			s.applyLyrics(r)
		}
	}
}

// Close persists the session, closes the engine and the store.
func (s *Session) Close() error {
	s.persist()
	s.stopLyrics()
	s.wg.Wait()
	err := s.Service.Close()
	if s.store != nil {
		err = errors.Join(err, s.store.Close())
	}
	return err
}

// SetVolume sets the output level and persists it.
func (s *Session) SetVolume(level float64) {
	s.Service.SetVolume(level)
	s.persist()
}

// ToggleMute flips the muted flag and persists it.
func (s *Session) ToggleMute() {
	s.Service.ToggleMute()
	s.persist()
}

// SetMuted sets the muted flag and persists it.
func (s *Session) SetMuted(muted bool) {
	s.Service.SetMuted(muted)
	s.persist()
}

// SetCurrentTime seeks and repositions the lyrics on the target line
// without animation. No-op while the duration is unknown.
func (s *Session) SetCurrentTime(pos time.Duration) {
	snap := s.Snapshot()
	if snap.Duration <= 0 {
		return
	}
	s.Service.SetCurrentTime(pos)
	s.updateCursor(min(max(pos, 0), snap.Duration), true)
}

func (s *Session) persist() {
	if s.store == nil {
		return
	}
	snap := s.Snapshot()
	s.store.SaveSession(state.Session{
		Playlist:     snap.Playlist,
		Original:     snap.Original,
		History:      snap.History,
		CurrentIndex: snap.CurrentIndex,
		Mode:         snap.Mode,
		Volume:       snap.Volume,
		Muted:        snap.Muted,
	})
}

func (s *Session) flush() error {
	if s.store == nil {
		return nil
	}
	return s.store.Flush()
}

// TrackRef describes song for lyric lookup. Local music files also get a
// sidecar path.
func TrackRef(song playlist.Song) lyrics.TrackRef {
	ref := lyrics.TrackRef{
		ID:       song.ID,
		Artist:   song.Artist,
		Title:    song.Title,
		Album:    song.Album,
		Duration: song.Duration,
	}
	if player.IsMusicFile(song.URL) && !isRemote(song.URL) {
		ref.FilePath = player.LocalPath(song.URL)
	}
	return ref
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
