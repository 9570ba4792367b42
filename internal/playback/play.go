package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
)

// playSongLocked resolves the current song and starts an asynchronous play
// request guarded by the play generation.
func (e *Engine) playSongLocked(ctx context.Context, song *playlist.Song, index int) <-chan error {
	if e.closed {
		return settled(ErrClosed)
	}
	if song != nil {
		e.selectLocked(*song, index)
	}
	cur := e.queue.Current()
	if cur == nil {
		e.setErrorLocked(ErrorNoSong, ErrNoSong)
		return settled(ErrNoSong)
	}
	target := *cur

	t, err := e.ensureTransportLocked()
	if err != nil {
		err = fmt.Errorf("create transport: %w", err)
		e.setErrorLocked(ErrorPlaybackFailed, err)
		e.setStatusLocked(StatusErrored)
		return settled(err)
	}

	e.playGen++
	gen := e.playGen
	e.clearErrorLocked()
	e.trackChangedLocked(&target, e.queue.CurrentIndex())
	e.log.WithFields(logrus.Fields{
		"song": target.ID,
		"url":  target.URL,
		"gen":  gen,
	}).Debug("play request")

	done := make(chan error, 1)
	e.wg.Add(1)
	go e.runPlay(ctx, t, gen, target, done)
	return done
}

// runPlay loads the target when the transport holds another source, then
// plays. Only the request of the latest generation applies its result.
func (e *Engine) runPlay(ctx context.Context, t player.Transport, gen uint64, target playlist.Song, done chan<- error) {
	defer e.wg.Done()
	ctx, cancel := e.requestContext(ctx)
	defer cancel()

	e.loadMu.Lock()
	if !e.isCurrentGen(gen) {
		e.loadMu.Unlock()
		done <- ErrSuperseded
		return
	}
	var err error
	if t.Source() != target.URL {
		e.mu.Lock()
		e.source = target.URL
		e.loadSource = target.URL
		e.loadFailed = false
		e.mu.Unlock()

		err = t.Load(target.URL)

		e.mu.Lock()
		if err != nil {
			e.loadFailed = true
			err = fmt.Errorf("load %s: %w", target.URL, err)
		} else {
			e.loadSource = ""
		}
		e.mu.Unlock()
	}
	e.loadMu.Unlock()

	if err == nil {
		if err = t.Play(ctx); err != nil {
			err = fmt.Errorf("play %s: %w", target.URL, err)
		}
	}

	e.mu.Lock()
	if gen != e.playGen {
		e.mu.Unlock()
		done <- ErrSuperseded
		return
	}
	if err != nil {
		e.setErrorLocked(ErrorPlaybackFailed, err)
		e.setStatusLocked(StatusErrored)
		e.mu.Unlock()
		e.log.WithError(err).WithField("song", target.ID).Warn("playback failed")
		done <- err
		return
	}
	e.history.Push(target)
	e.clearErrorLocked()
	e.mu.Unlock()
	done <- nil
}

// requestContext derives a context that is also canceled when the engine
// closes.
func (e *Engine) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (e *Engine) isCurrentGen(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return gen == e.playGen
}

func (e *Engine) playIndexLocked(ctx context.Context, index int) <-chan error {
	s := e.queue.Song(index)
	if s == nil {
		return settled(nil)
	}
	song := *s
	return e.playSongLocked(ctx, &song, index)
}

func (e *Engine) handleSongEndLocked(ctx context.Context) <-chan error {
	if e.queue.Mode() == playlist.ModeSingle {
		if e.queue.Current() == nil {
			return settled(nil)
		}
		return e.playSongLocked(ctx, nil, -1)
	}
	return e.playIndexLocked(ctx, e.queue.NextIndex())
}

// selectLocked makes song current. index wins when it points at song;
// otherwise song is located by ID, and appended when absent.
func (e *Engine) selectLocked(song playlist.Song, index int) {
	if s := e.queue.Song(index); s != nil && s.ID == song.ID {
		e.queue.JumpTo(index)
		return
	}
	if i := e.queue.IndexOf(song.ID); i >= 0 {
		e.queue.JumpTo(i)
		return
	}
	e.queue.Add(song)
	e.queue.JumpTo(e.queue.IndexOf(song.ID))
	e.queueChangedLocked()
}

// ensureTransportLocked creates the transport on first use and starts
// forwarding its events.
func (e *Engine) ensureTransportLocked() (player.Transport, error) {
	if e.transport != nil {
		return e.transport, nil
	}
	t, err := e.newTransport()
	if err != nil {
		return nil, err
	}
	e.transport = t
	stop := make(chan struct{})
	e.pumpStop = stop
	e.wg.Add(1)
	go e.pump(t, stop)
	t.SetVolume(e.volume)
	t.SetMuted(e.muted)
	e.log.Debug("transport created")
	return t, nil
}

func (e *Engine) pump(t player.Transport, stop <-chan struct{}) {
	defer e.wg.Done()
	for {
		select {
		case ev := <-t.Events():
			select {
			case e.events <- ev:
			case <-stop:
				return
			}
		case <-stop:
			return
		}
	}
}

func (e *Engine) pauseLocked() {
	if e.transport != nil && e.status == StatusPlaying {
		e.transport.Pause()
	}
}

func (e *Engine) resumeLocked(ctx context.Context) <-chan error {
	if e.transport == nil || e.status != StatusPaused {
		return settled(nil)
	}
	t := e.transport
	gen := e.playGen
	done := make(chan error, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := e.requestContext(ctx)
		defer cancel()
		err := t.Play(ctx)

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.playGen {
			done <- ErrSuperseded
			return
		}
		if err != nil {
			err = fmt.Errorf("resume: %w", err)
			e.setErrorLocked(ErrorPlaybackFailed, err)
			e.setStatusLocked(StatusErrored)
		}
		done <- err
	}()
	return done
}

// stopLocked supersedes in-flight requests, pauses and rewinds.
func (e *Engine) stopLocked() {
	e.playGen++
	if e.transport != nil {
		e.transport.Pause()
		e.transport.Seek(0)
	}
	e.position = 0
	e.loading = false
	e.setStatusLocked(StatusIdle)
}

func (e *Engine) destroyLocked() {
	e.playGen++
	if e.transport != nil {
		e.transport.Pause()
		if err := e.transport.Close(); err != nil {
			e.log.WithError(err).Warn("closing transport")
		}
		close(e.pumpStop)
		e.transport = nil
		e.pumpStop = nil
	}
	e.source = ""
	e.loading = false
	e.position = 0
	e.duration = 0
	e.clearErrorLocked()
	e.queue.Deselect()
	e.trackChangedLocked(nil, -1)
	e.setStatusLocked(StatusIdle)
}

func (e *Engine) seekLocked(pos time.Duration) {
	if e.duration <= 0 || e.transport == nil {
		return
	}
	e.transport.Seek(min(max(pos, 0), e.duration))
}

func (e *Engine) setMutedLocked(muted bool) {
	if e.transport != nil {
		e.transport.SetMuted(muted)
		return
	}
	e.muted = muted
}

func (e *Engine) setStatusLocked(s Status) {
	if s == e.status {
		return
	}
	prev := e.status
	e.status = s
	e.sendState(StateChange{Previous: prev, Current: s})
}

func (e *Engine) setErrorLocked(kind ErrorKind, err error) {
	e.errKind = kind
	e.err = err
	var songID string
	if c := e.queue.Current(); c != nil {
		songID = c.ID
	}
	e.sendError(ErrorEvent{Kind: kind, SongID: songID, Err: err})
}

func (e *Engine) clearErrorLocked() {
	e.errKind = ErrorNone
	e.err = nil
}

func (e *Engine) trackChangedLocked(cur *playlist.Song, index int) {
	if cur == nil && e.lastSong == nil {
		return
	}
	if cur != nil && e.lastSong != nil && cur.ID == e.lastSong.ID {
		e.lastIndex = index
		return
	}
	ev := TrackChange{
		Previous:      e.lastSong,
		Current:       cur,
		PreviousIndex: e.lastIndex,
		Index:         index,
	}
	e.lastSong = cur
	e.lastIndex = index
	e.sendTrack(ev)
}

func (e *Engine) queueChangedLocked() {
	e.sendQueue(QueueChange{Songs: e.queue.Songs(), Index: e.queue.CurrentIndex()})
}

func (e *Engine) modeChangedLocked() {
	e.sendMode(ModeChange{Mode: e.queue.Mode()})
	e.queueChangedLocked()
}

func (e *Engine) sendState(ev StateChange) {
	e.subs.each(func(s *Subscription) { s.sendState(ev) })
}

func (e *Engine) sendTrack(ev TrackChange) {
	e.subs.each(func(s *Subscription) { s.sendTrack(ev) })
}

func (e *Engine) sendPosition(ev PositionChange) {
	e.subs.each(func(s *Subscription) { s.sendPosition(ev) })
}

func (e *Engine) sendQueue(ev QueueChange) {
	e.subs.each(func(s *Subscription) { s.sendQueue(ev) })
}

func (e *Engine) sendMode(ev ModeChange) {
	e.subs.each(func(s *Subscription) { s.sendMode(ev) })
}

func (e *Engine) sendError(ev ErrorEvent) {
	e.subs.each(func(s *Subscription) { s.sendError(ev) })
}
