package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cadence/internal/lyriccursor"
	"github.com/llehouerou/cadence/internal/lyrics"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
	"github.com/llehouerou/cadence/internal/state"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeLyrics serves canned documents by song ID. Fetches for IDs listed in
// hold block until released.
type fakeLyrics struct {
	mu    sync.Mutex
	docs  map[string]lyrics.FetchResult
	hold  map[string]chan struct{}
	calls []string
}

func newFakeLyrics() *fakeLyrics {
	return &fakeLyrics{
		docs: make(map[string]lyrics.FetchResult),
		hold: make(map[string]chan struct{}),
	}
}

func (f *fakeLyrics) set(id, lrc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := lyrics.Build(lyrics.ParseTracks(lyrics.RawTracks{Original: lrc}), lyrics.DefaultTolerance)
	f.docs[id] = lyrics.FetchResult{Document: doc, Origin: lyrics.OriginAPI}
}

func (f *fakeLyrics) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = lyrics.FetchResult{Document: lyrics.Unavailable(), Origin: lyrics.OriginNotFound, Err: err}
}

func (f *fakeLyrics) block(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[id] = ch
	return ch
}

func (f *fakeLyrics) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeLyrics) Fetch(ctx context.Context, track lyrics.TrackRef) lyrics.FetchResult {
	f.mu.Lock()
	f.calls = append(f.calls, track.ID)
	gate := f.hold[track.ID]
	res, ok := f.docs[track.ID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
	if !ok {
		return lyrics.FetchResult{Document: lyrics.Build(lyrics.Tracks{}, 0), Origin: lyrics.OriginNotFound}
	}
	return res
}

type scrollRecorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *scrollRecorder) ScrollTo(index int, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, index)
}

type harness struct {
	s      *Session
	m      *player.Mock
	lyrics *fakeLyrics
	store  *state.Mock
	ctx    context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := player.NewMock()
	m.SetDuration(3 * time.Minute)
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return m, nil },
		Rand:         rand.New(rand.NewPCG(7, 9)),
	})
	fl := newFakeLyrics()
	store := state.NewMock()
	s := New(Options{
		Engine: eng,
		Lyrics: fl,
		Store:  store,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = s.Close()
	})
	return &harness{s: s, m: m, lyrics: fl, store: store, ctx: ctx}
}

func testSongs(n int) []playlist.Song {
	out := make([]playlist.Song, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = playlist.Song{ID: id, URL: fmt.Sprintf("https://example.com/%s.mp3", id), Title: id}
	}
	return out
}

func await(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("request did not settle")
		return nil
	}
}

func (h *harness) waitLyrics(t *testing.T, first string) {
	t.Helper()
	assert.Eventually(t, func() bool {
		v := h.s.View()
		return !v.LyricsLoading && len(v.Lines) > 0 && v.Lines[0].Text == first
	}, waitFor, tick, "lyrics starting with %q never shown", first)
}

func (h *harness) timeUpdate(at time.Duration) {
	h.m.Emit(player.Event{Kind: player.EventTimeUpdate, Source: h.m.Source(), Time: at})
}

func TestSession_LoadsLyricsOnTrackChange(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one\n[00:05.00]two\n[00:10.00]three")
	h.s.SetPlaylist(testSongs(2), -1)

	require.NoError(t, await(t, h.s.PlayIndex(h.ctx, 0)))
	h.waitLyrics(t, "one")

	v := h.s.View()
	assert.Equal(t, lyrics.StatusOK, v.LyricsStatus)
	assert.Equal(t, lyrics.OriginAPI, v.LyricsOrigin)
	assert.Len(t, v.Lines, 3)
	assert.Equal(t, 0, v.ActiveIndex)
	assert.True(t, v.Positioned)
	assert.Empty(t, v.LyricsError)
}

func TestSession_PositionMovesActiveLine(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one\n[00:05.00]two\n[00:10.00]three")
	h.s.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "one")

	h.timeUpdate(7 * time.Second)

	assert.Eventually(t, func() bool {
		return h.s.View().ActiveLine == "two"
	}, waitFor, tick)
	assert.Equal(t, 1, h.s.View().ActiveIndex)
}

func TestSession_NewSongStartsOnFirstLine(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]a one\n[00:30.00]a two\n[01:00.00]a three")
	h.lyrics.set("b", "[00:00.00]b one\n[00:30.00]b two\n[01:00.00]b three")
	h.s.SetPlaylist(testSongs(2), 0)
	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "a one")

	h.timeUpdate(90 * time.Second)
	assert.Eventually(t, func() bool {
		return h.s.View().ActiveIndex == 2
	}, waitFor, tick)

	require.NoError(t, await(t, h.s.PlayIndex(h.ctx, 1)))
	h.waitLyrics(t, "b one")

	v := h.s.View()
	assert.Equal(t, 0, v.ActiveIndex)
	assert.Equal(t, "b one", v.ActiveLine)
}

func TestSession_SameSongIsNotFetchedTwice(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one")
	h.s.SetPlaylist(testSongs(1), 0)

	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "one")
	require.NoError(t, await(t, h.s.PlayIndex(h.ctx, 0)))

	assert.Never(t, func() bool {
		return len(h.lyrics.Calls()) > 1
	}, 100*time.Millisecond, tick)

	h.s.RefreshLyrics(h.ctx)
	assert.Eventually(t, func() bool {
		return len(h.lyrics.Calls()) == 2
	}, waitFor, tick, "forced refresh fetches again")
}

func TestSession_StaleLyricsAreDropped(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]from a")
	h.lyrics.set("b", "[00:00.00]from b")
	gate := h.lyrics.block("a")
	h.s.SetPlaylist(testSongs(2), -1)

	require.NoError(t, await(t, h.s.PlayIndex(h.ctx, 0)))
	assert.Eventually(t, func() bool {
		return len(h.lyrics.Calls()) == 1
	}, waitFor, tick)

	require.NoError(t, await(t, h.s.PlayIndex(h.ctx, 1)))
	h.waitLyrics(t, "from b")
	close(gate)

	assert.Never(t, func() bool {
		v := h.s.View()
		return len(v.Lines) > 0 && v.Lines[0].Text == "from a"
	}, 100*time.Millisecond, tick)
}

func TestSession_FetchFailureShowsSentinel(t *testing.T) {
	h := newHarness(t)
	h.lyrics.fail("a", errors.New("network down"))
	h.s.SetPlaylist(testSongs(1), 0)

	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, lyrics.FetchFailedText)

	v := h.s.View()
	assert.Equal(t, lyrics.StatusUnavailable, v.LyricsStatus)
	assert.Equal(t, "Failed to load lyrics: network down", v.LyricsError)
}

func TestSession_MissingLyricsShowSentinel(t *testing.T) {
	h := newHarness(t)
	h.s.SetPlaylist(testSongs(1), 0)

	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, lyrics.NoLyricsText)

	v := h.s.View()
	assert.Equal(t, lyrics.StatusParseEmpty, v.LyricsStatus)
	assert.Empty(t, v.LyricsError)
}

func TestSession_ClearingPlaylistClearsLyrics(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one")
	h.s.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "one")

	h.s.ClearPlaylist()

	assert.Eventually(t, func() bool {
		return len(h.s.View().Lines) == 0
	}, waitFor, tick)
	assert.Equal(t, -1, h.s.View().ActiveIndex)
}

func TestSession_TranslationToggle(t *testing.T) {
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return player.NewMock(), nil },
	})
	s := New(Options{Engine: eng})
	defer s.Close()
	s.mu.Lock()
	s.setDocumentLocked(lyrics.Document{
		Lines: []lyrics.MergedLine{{Time: 0, Original: "hola", Translation: "hello", Romanization: "o-la"}},
	}, lyrics.OriginAPI, nil)
	s.mu.Unlock()

	assert.Equal(t, "hola", s.View().Lines[0].Text)

	assert.True(t, s.ToggleTranslation())
	assert.Equal(t, "hola\nhello", s.View().Lines[0].Text)

	assert.True(t, s.ToggleRomanization())
	assert.Equal(t, "hola\nhello\no-la", s.View().Lines[0].Text)

	assert.False(t, s.ToggleTranslation())
	assert.Equal(t, "hola\no-la", s.View().Lines[0].Text)
}

func TestSession_SeekToLine(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one\n[00:05.00]two\n[00:10.00]three")
	h.s.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "one")
	assert.Eventually(t, func() bool {
		return h.s.Snapshot().Duration > 0
	}, waitFor, tick)

	require.NoError(t, h.s.SeekToLine(2))
	assert.Equal(t, []time.Duration{10 * time.Second}, h.m.SeekCalls())
	assert.Equal(t, "three", h.s.View().ActiveLine)

	assert.ErrorIs(t, h.s.SeekToLine(3), ErrNoLine)
	assert.ErrorIs(t, h.s.SeekToLine(-1), ErrNoLine)
}

func TestSession_OffsetShiftsActiveLine(t *testing.T) {
	h := newHarness(t)
	h.lyrics.set("a", "[00:00.00]one\n[00:05.00]two")
	h.s.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, h.s.Play(h.ctx)))
	h.waitLyrics(t, "one")

	h.s.SetLyricOffset(2 * time.Second)
	h.timeUpdate(4 * time.Second)

	assert.Eventually(t, func() bool {
		return h.s.View().ActiveLine == "two"
	}, waitFor, tick)
	assert.Equal(t, 2*time.Second, h.s.View().Offset)
}

func TestSession_CursorCommands(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.s.ToggleAutoScroll())
	assert.False(t, h.s.View().AutoScroll)
	assert.True(t, h.s.ToggleAutoScroll())

	assert.InDelta(t, 1.05, h.s.IncreaseScale(), 1e-9)
	assert.InDelta(t, 1.0, h.s.DecreaseScale(), 1e-9)
	assert.InDelta(t, 1.0, h.s.View().Scale, 1e-9)
}

func TestSession_PersistsChanges(t *testing.T) {
	h := newHarness(t)
	h.s.SetPlaylist(testSongs(3), 1)
	h.s.SetPlayMode(playlist.ModeSingle)
	h.s.SetVolume(0.4)

	assert.Eventually(t, func() bool {
		saved, err := h.store.GetSession()
		return err == nil && saved != nil &&
			len(saved.Playlist) == 3 &&
			saved.CurrentIndex == 1 &&
			saved.Mode == playlist.ModeSingle &&
			saved.Volume == 0.4
	}, waitFor, tick)
}

func TestSession_Restore(t *testing.T) {
	m := player.NewMock()
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return m, nil },
	})
	store := state.NewMock()
	store.SetSession(&state.Session{
		Playlist:     testSongs(2),
		CurrentIndex: 1,
		Mode:         playlist.ModeRandom,
		History:      testSongs(1),
		Volume:       0.3,
		Muted:        true,
	})
	s := New(Options{Engine: eng, Store: store})
	defer s.Close()

	found, err := s.Restore()
	require.NoError(t, err)
	assert.True(t, found)

	v := s.View()
	assert.Equal(t, "b", v.Current.ID)
	assert.Equal(t, playlist.ModeRandom, v.Mode)
	assert.InDelta(t, 0.3, v.Volume, 1e-9)
	assert.True(t, v.Muted)
	assert.Equal(t, playback.StatusIdle, v.Status)
	assert.Empty(t, m.LoadCalls(), "restore never touches the transport")
}

func TestSession_RestoreWithoutSavedSession(t *testing.T) {
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return player.NewMock(), nil },
	})
	s := New(Options{Engine: eng, Store: state.NewMock()})
	defer s.Close()

	found, err := s.Restore()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSession_CloseClosesStore(t *testing.T) {
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return player.NewMock(), nil },
	})
	store := state.NewMock()
	s := New(Options{Engine: eng, Store: store})

	require.NoError(t, s.Close())
	assert.True(t, store.Closed())
	assert.Equal(t, 1, store.Saves())
}

func TestSession_ScrollerFollowsCursor(t *testing.T) {
	m := player.NewMock()
	m.SetDuration(time.Minute)
	eng := playback.New(playback.Options{
		NewTransport: func() (player.Transport, error) { return m, nil },
	})
	fl := newFakeLyrics()
	fl.set("a", "[00:00.00]one\n[00:05.00]two")
	rec := &scrollRecorder{}
	s := New(Options{Engine: eng, Lyrics: fl, Scroller: rec, Cursor: lyriccursor.Config{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		<-done
		_ = s.Close()
	}()

	s.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, s.Play(ctx)))
	m.Emit(player.Event{Kind: player.EventTimeUpdate, Source: m.Source(), Time: 6 * time.Second})

	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.calls) > 0 && rec.calls[len(rec.calls)-1] == 1
	}, waitFor, tick)
}

func TestSession_PlaybackErrorMessage(t *testing.T) {
	h := newHarness(t)
	h.m.SetLoadError(errors.New("no such file"))
	h.s.SetPlaylist(testSongs(1), 0)

	err := await(t, h.s.Play(h.ctx))
	require.Error(t, err)

	msg := h.s.View().Error
	assert.Contains(t, msg, "'a'")
	assert.Contains(t, msg, "no such file")
	assert.Equal(t, playback.StatusErrored, h.s.View().Status)
}
