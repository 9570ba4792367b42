// internal/playback/engine.go
package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
)

// Verify Engine implements Service at compile time.
var _ Service = (*Engine)(nil)

// DefaultVolume is the initial output level.
const DefaultVolume = 0.8

const transportEventBuffer = 64

// TransportFactory creates the transport on first use.
type TransportFactory func() (player.Transport, error)

// Options configures an Engine.
type Options struct {
	// NewTransport defaults to a beep transport.
	NewTransport TransportFactory
	// Rand drives shuffling and random navigation.
	Rand        playlist.Rand
	HistorySize int
	Logger      logrus.FieldLogger
}

// Persisted is the part of the state that survives a restart.
type Persisted struct {
	Playlist     []playlist.Song
	Original     []playlist.Song
	CurrentIndex int
	Mode         playlist.Mode
	History      []playlist.Song
	Volume       float64
	Muted        bool
}

// Engine owns the playlist, the play mode, the history and the single
// transport of a session. Transport events must be fed back through
// HandleEvent; they are the only source of truth for status, position,
// duration and volume.
type Engine struct {
	mu sync.RWMutex

	newTransport TransportFactory
	transport    player.Transport
	pumpStop     chan struct{}
	events       chan player.Event
	loadMu       sync.Mutex // serializes transport loads

	queue   *playlist.Queue
	history *playlist.History

	status   Status
	loading  bool
	source   string // source the engine asked the transport to load
	volume   float64
	muted    bool
	position time.Duration
	duration time.Duration
	errKind  ErrorKind
	err      error

	// loadSource is the source of the load runPlay is performing or has
	// reported as failed. Its transport errors are owned by runPlay.
	loadSource string
	loadFailed bool

	playGen   uint64
	lastSong  *playlist.Song
	lastIndex int

	log logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subs hub

	closed bool
}

// New creates a playback engine. No transport is created until the first
// play request.
func New(opts Options) *Engine {
	if opts.NewTransport == nil {
		opts.NewTransport = func() (player.Transport, error) { return player.NewBeep(), nil }
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		newTransport: opts.NewTransport,
		events:       make(chan player.Event, transportEventBuffer),
		queue:        playlist.NewQueue(opts.Rand),
		history:      playlist.NewHistory(opts.HistorySize),
		volume:       DefaultVolume,
		lastIndex:    -1,
		log:          log.WithField("component", "playback"),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// TransportEvents returns the events of the current transport. The channel
// outlives transport re-creation and is never closed.
func (e *Engine) TransportEvents() <-chan player.Event {
	return e.events
}

// Snapshot returns a copy of the state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var current *playlist.Song
	if c := e.queue.Current(); c != nil {
		cp := *c
		current = &cp
	}
	return Snapshot{
		Status:       e.status,
		Loading:      e.loading,
		Playlist:     e.queue.Songs(),
		Original:     e.queue.Original(),
		CurrentIndex: e.queue.CurrentIndex(),
		Current:      current,
		Mode:         e.queue.Mode(),
		History:      e.history.Songs(),
		Volume:       e.volume,
		Muted:        e.muted,
		Position:     e.position,
		Duration:     e.duration,
		ErrKind:      e.errKind,
		Err:          e.err,
	}
}

// Restore loads persisted state. The transport is not touched.
func (e *Engine) Restore(p Persisted) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Restore(p.Playlist, p.Original, p.CurrentIndex, p.Mode)
	e.history.Set(p.History)
	e.volume = player.ClampVolume(p.Volume)
	e.muted = p.Muted
	e.queueChangedLocked()
	e.sendMode(ModeChange{Mode: e.queue.Mode()})
}

// SetPlaylist replaces the playlist and makes startIndex current when it is
// in range. It never touches the transport.
func (e *Engine) SetPlaylist(songs []playlist.Song, startIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Replace(songs, startIndex)
	e.queueChangedLocked()
}

// AddSong appends a song unless its ID is already present.
func (e *Engine) AddSong(song playlist.Song) {
	e.AddSongs([]playlist.Song{song})
}

// AddSongs appends the songs whose ID is not already present.
func (e *Engine) AddSongs(songs []playlist.Song) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queue.Add(songs...) > 0 {
		e.queueChangedLocked()
	}
}

// RemoveSong removes a song by ID. Removing the current song plays the
// following one, or stops when the playlist becomes empty.
func (e *Engine) RemoveSong(ctx context.Context, id string) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	index, wasCurrent := e.queue.Remove(id)
	if index < 0 {
		return settled(nil)
	}
	e.queueChangedLocked()
	if !wasCurrent {
		return settled(nil)
	}
	if e.queue.IsEmpty() {
		e.stopLocked()
		e.trackChangedLocked(nil, -1)
		return settled(nil)
	}
	return e.playSongLocked(ctx, nil, -1)
}

// ClearPlaylist stops playback and empties the playlist and its snapshot.
func (e *Engine) ClearPlaylist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	e.queue.Clear()
	e.queueChangedLocked()
	e.trackChangedLocked(nil, -1)
}

// ShufflePlaylist permutes the playlist, keeping the first pre-shuffle order
// as the snapshot to restore.
func (e *Engine) ShufflePlaylist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Shuffle()
	e.queueChangedLocked()
}

// TogglePlayMode cycles list → single → random → list.
func (e *Engine) TogglePlayMode() playlist.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	mode := e.queue.ToggleMode()
	e.modeChangedLocked()
	return mode
}

// SetPlayMode switches the play mode. Entering random shuffles; leaving it
// restores the pre-shuffle order.
func (e *Engine) SetPlayMode(mode playlist.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.SetMode(mode)
	e.modeChangedLocked()
}

// PlaySong makes song current when given, then plays the current song.
// index is used when it points at song; otherwise song is located by ID and
// appended when absent. The transport only loads when the source changes.
func (e *Engine) PlaySong(ctx context.Context, song *playlist.Song, index int) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playSongLocked(ctx, song, index)
}

// Play plays the current song.
func (e *Engine) Play(ctx context.Context) <-chan error {
	return e.PlaySong(ctx, nil, -1)
}

// PlayIndex plays the song at index.
func (e *Engine) PlayIndex(ctx context.Context, index int) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.queue.Song(index)
	if s == nil {
		return settled(fmt.Errorf("%w: %d", ErrInvalidIndex, index))
	}
	song := *s
	return e.playSongLocked(ctx, &song, index)
}

// NextSong plays the song selected by the play mode. No-op on an empty
// playlist.
func (e *Engine) NextSong(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playIndexLocked(ctx, e.queue.NextIndex())
}

// PreviousSong plays the previous song selected by the play mode. No-op on
// an empty playlist.
func (e *Engine) PreviousSong(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playIndexLocked(ctx, e.queue.PreviousIndex(e.history))
}

// HandleSongEnd replays the current song in single mode and advances
// otherwise.
func (e *Engine) HandleSongEnd(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleSongEndLocked(ctx)
}

// Pause asks the transport to pause when playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

// Resume asks the transport to continue when paused. It does not touch the
// history.
func (e *Engine) Resume(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resumeLocked(ctx)
}

// TogglePlay pauses when playing, resumes when paused and plays the current
// song otherwise.
func (e *Engine) TogglePlay(ctx context.Context) <-chan error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case StatusPlaying:
		e.pauseLocked()
		return settled(nil)
	case StatusPaused:
		return e.resumeLocked(ctx)
	default:
		return e.playSongLocked(ctx, nil, -1)
	}
}

// Stop pauses the transport, rewinds and resets the status to idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// SetVolume sets the output level, clamped to [0, 1]. With a transport the
// state follows its VolumeChange event.
func (e *Engine) SetVolume(level float64) {
	level = player.ClampVolume(level)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.transport != nil {
		e.transport.SetVolume(level)
		return
	}
	e.volume = level
}

// ToggleMute flips the muted flag.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setMutedLocked(!e.muted)
}

// SetMuted sets the muted flag.
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setMutedLocked(muted)
}

// SetCurrentTime seeks to pos clamped to [0, duration]. No-op while the
// duration is unknown.
func (e *Engine) SetCurrentTime(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekLocked(pos)
}

// SetProgress seeks to a percentage of the duration. No-op while the
// duration is unknown.
func (e *Engine) SetProgress(percent float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.duration <= 0 {
		return
	}
	e.seekLocked(time.Duration(percent / 100 * float64(e.duration)))
}

// ClearHistory empties the play history.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// ClearError drops the recorded error.
func (e *Engine) ClearError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearErrorLocked()
}

// HandleEvent applies a transport event. Events from a source other than
// the one last loaded are ignored.
func (e *Engine) HandleEvent(ctx context.Context, ev player.Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if ev.Source != "" && ev.Source != e.source && ev.Kind != player.EventVolumeChange {
		e.mu.Unlock()
		e.log.WithField("event", ev.String()).Debug("stale transport event")
		return
	}
	if ev.Source != "" && ev.Source == e.loadSource && (e.loadFailed || ev.Kind == player.EventError) {
		e.mu.Unlock()
		e.log.WithField("event", ev.String()).Debug("event of a reported load")
		return
	}

	switch ev.Kind {
	case player.EventLoadStart:
		e.loading = true
		e.position = 0
		e.duration = 0
		e.setStatusLocked(StatusLoading)
	case player.EventCanPlay:
		e.loading = false
		e.duration = ev.Duration
	case player.EventPlay:
		e.loading = false
		e.clearErrorLocked()
		e.setStatusLocked(StatusPlaying)
	case player.EventPause:
		if e.status == StatusPlaying || e.status == StatusLoading {
			e.setStatusLocked(StatusPaused)
		}
	case player.EventTimeUpdate:
		e.position = max(ev.Time, 0)
		e.sendPosition(PositionChange{Position: e.position, Duration: e.duration})
	case player.EventVolumeChange:
		e.volume = ev.Volume
		e.muted = ev.Muted
	case player.EventError:
		e.loading = false
		e.setErrorLocked(ErrorTransport, ev.Err)
		e.setStatusLocked(StatusErrored)
		e.log.WithError(ev.Err).Warn("transport error")
	case player.EventEnded:
		e.setStatusLocked(StatusEnded)
		e.handleSongEndLocked(ctx)
	}
	e.mu.Unlock()
}

// Subscribe creates a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	return e.subs.subscribe()
}

// Destroy stops playback and releases the transport. The playlist, the mode
// and the history are kept; the current song, time, duration and error are
// reset.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyLocked()
}

// Close destroys the transport, waits for in-flight requests and closes
// subscriptions.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.destroyLocked()
	e.closed = true
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()

	e.subs.close()
	return nil
}

// settled returns a completed request channel.
func settled(err error) <-chan error {
	done := make(chan error, 1)
	done <- err
	return done
}
