package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var errBoom = errors.New("boom")

type harness struct {
	e   *Engine
	m   *player.Mock
	ctx context.Context
}

// newHarness wires an engine to a mock transport and feeds transport events
// back into the engine the way a session loop does.
func newHarness(t *testing.T) *harness {
	t.Helper()
	m := player.NewMock()
	m.SetDuration(3 * time.Minute)
	e := New(Options{
		NewTransport: func() (player.Transport, error) { return m, nil },
		Rand:         rand.New(rand.NewPCG(1, 2)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		for {
			select {
			case ev := <-e.TransportEvents():
				e.HandleEvent(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
	t.Cleanup(func() {
		_ = e.Close()
		cancel()
		<-loopDone
	})
	return &harness{e: e, m: m, ctx: ctx}
}

func testSongs(n int) []playlist.Song {
	out := make([]playlist.Song, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = playlist.Song{ID: id, URL: fmt.Sprintf("/music/%s.mp3", id), Title: id}
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

func (h *harness) waitStatus(t *testing.T, want Status) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return h.e.Snapshot().Status == want
	}, waitFor, tick, "status never reached %v", want)
}

func historyIDs(s Snapshot) []string {
	ids := make([]string, len(s.History))
	for i, song := range s.History {
		ids[i] = song.ID
	}
	return ids
}

func currentID(s Snapshot) string {
	if s.Current == nil {
		return ""
	}
	return s.Current.ID
}

func TestEngine_PlayIndex_LoadsAndPlays(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(3)
	h.e.SetPlaylist(songs, -1)

	require.NoError(t, await(t, h.e.PlayIndex(h.ctx, 1)))
	h.waitStatus(t, StatusPlaying)

	s := h.e.Snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, "b", currentID(s))
	assert.Equal(t, []string{"b"}, historyIDs(s))
	assert.Equal(t, []string{songs[1].URL}, h.m.LoadCalls())
	assert.Eventually(t, func() bool {
		return h.e.Snapshot().Duration == 3*time.Minute
	}, waitFor, tick)
}

func TestEngine_SetPlaylistDoesNotTouchTransport(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(3), 2)

	s := h.e.Snapshot()
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, h.m.LoadCalls())
	assert.Zero(t, h.m.PlayCalls())
}

func TestEngine_SameSourceIsNotReloaded(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(2), 0)

	require.NoError(t, await(t, h.e.Play(h.ctx)))
	require.NoError(t, await(t, h.e.PlayIndex(h.ctx, 0)))

	assert.Len(t, h.m.LoadCalls(), 1)
	assert.Equal(t, 2, h.m.PlayCalls())
	assert.Equal(t, []string{"a"}, historyIDs(h.e.Snapshot()), "consecutive duplicate skipped")
}

func TestEngine_PlaySong_ResolvesIndex(t *testing.T) {
	songs := testSongs(3)

	tests := []struct {
		name      string
		song      playlist.Song
		index     int
		wantIndex int
		wantLen   int
	}{
		{"matching index", songs[2], 2, 2, 3},
		{"stale index found by id", songs[2], 0, 2, 3},
		{"unknown song appended", playlist.Song{ID: "z", URL: "/music/z.mp3"}, -1, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.e.SetPlaylist(songs, -1)

			require.NoError(t, await(t, h.e.PlaySong(h.ctx, &tt.song, tt.index)))

			s := h.e.Snapshot()
			assert.Equal(t, tt.wantIndex, s.CurrentIndex)
			assert.Len(t, s.Playlist, tt.wantLen)
			assert.Equal(t, tt.song.ID, currentID(s))
		})
	}
}

func TestEngine_NextPreviousRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(3), 0)
	require.NoError(t, await(t, h.e.Play(h.ctx)))

	require.NoError(t, await(t, h.e.NextSong(h.ctx)))
	assert.Equal(t, 1, h.e.Snapshot().CurrentIndex)

	require.NoError(t, await(t, h.e.PreviousSong(h.ctx)))
	assert.Equal(t, 0, h.e.Snapshot().CurrentIndex)

	require.NoError(t, await(t, h.e.PreviousSong(h.ctx)))
	assert.Equal(t, 2, h.e.Snapshot().CurrentIndex, "wraps to the last song")

	require.NoError(t, await(t, h.e.NextSong(h.ctx)))
	assert.Equal(t, 0, h.e.Snapshot().CurrentIndex, "wraps to the first song")
}

func TestEngine_RandomNextNeverRepeats(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(5), 0)
	h.e.SetPlayMode(playlist.ModeRandom)
	require.NoError(t, await(t, h.e.Play(h.ctx)))

	prev := currentID(h.e.Snapshot())
	for range 10 {
		require.NoError(t, await(t, h.e.NextSong(h.ctx)))
		cur := currentID(h.e.Snapshot())
		assert.NotEqual(t, prev, cur)
		prev = cur
	}
}

func TestEngine_NavigationOnEmptyPlaylistIsNoop(t *testing.T) {
	h := newHarness(t)

	assert.NoError(t, await(t, h.e.NextSong(h.ctx)))
	assert.NoError(t, await(t, h.e.PreviousSong(h.ctx)))
	assert.Empty(t, h.m.LoadCalls())
}

func TestEngine_PlayIndexOutOfRange(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(2), 0)

	err := await(t, h.e.PlayIndex(h.ctx, 5))

	require.ErrorIs(t, err, ErrInvalidIndex)
	assert.Equal(t, 0, h.e.Snapshot().CurrentIndex)
	assert.Empty(t, h.m.LoadCalls())
}

func TestEngine_PlayWithoutSong(t *testing.T) {
	h := newHarness(t)

	err := await(t, h.e.Play(h.ctx))

	require.ErrorIs(t, err, ErrNoSong)
	assert.Equal(t, ErrorNoSong, h.e.Snapshot().ErrKind)
}

func TestEngine_StalePlayRequestIsSuperseded(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(2)
	h.e.SetPlaylist(songs, -1)
	h.m.HoldPlay()

	doneA := h.e.PlayIndex(h.ctx, 0)
	require.Eventually(t, func() bool { return h.m.PendingPlays() == 1 }, waitFor, tick)
	doneB := h.e.PlayIndex(h.ctx, 1)
	require.Eventually(t, func() bool { return h.m.PendingPlays() == 2 }, waitFor, tick)

	h.m.ReleasePlay(1, nil)
	require.NoError(t, await(t, doneB))
	h.m.ReleasePlay(0, errBoom)
	assert.ErrorIs(t, await(t, doneA), ErrSuperseded)

	s := h.e.Snapshot()
	assert.Equal(t, "b", currentID(s))
	assert.Equal(t, ErrorNone, s.ErrKind)
	assert.NoError(t, s.Err)
	assert.Equal(t, []string{"b"}, historyIDs(s))
}

func TestEngine_PlaybackFailureRecovers(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(2), 0)
	h.m.SetPlayError(errBoom)

	err := await(t, h.e.Play(h.ctx))

	require.ErrorIs(t, err, errBoom)
	s := h.e.Snapshot()
	assert.Equal(t, ErrorPlaybackFailed, s.ErrKind)
	assert.ErrorIs(t, s.Err, errBoom)
	assert.Empty(t, s.History)

	h.m.SetPlayError(nil)
	require.NoError(t, await(t, h.e.NextSong(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	s = h.e.Snapshot()
	assert.Equal(t, ErrorNone, s.ErrKind)
	assert.Equal(t, "b", currentID(s))
}

func TestEngine_LoadFailure(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(1), 0)
	h.m.SetLoadError(errBoom)

	err := await(t, h.e.Play(h.ctx))

	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, h.m.PlayCalls())
	assert.Equal(t, ErrorPlaybackFailed, h.e.Snapshot().ErrKind)
	// the transport's own error event for the load must not reclassify it
	assert.Never(t, func() bool {
		snap := h.e.Snapshot()
		return snap.ErrKind != ErrorPlaybackFailed || snap.Status != StatusErrored
	}, 100*time.Millisecond, tick)
}

func TestEngine_RetryAfterLoadFailureReloads(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(1)
	h.e.SetPlaylist(songs, 0)
	h.m.SetLoadError(errBoom)
	require.ErrorIs(t, await(t, h.e.Play(h.ctx)), errBoom)

	h.m.SetLoadError(nil)
	require.NoError(t, await(t, h.e.PlaySong(h.ctx, &songs[0], 0)))

	assert.Equal(t, []string{songs[0].URL, songs[0].URL}, h.m.LoadCalls())
	h.waitStatus(t, StatusPlaying)
	assert.Equal(t, ErrorNone, h.e.Snapshot().ErrKind)
}

func TestEngine_EndedAdvancesInListMode(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(2)
	h.e.SetPlaylist(songs, 0)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	h.m.Emit(player.Event{Kind: player.EventEnded, Source: songs[0].URL})

	assert.Eventually(t, func() bool {
		return currentID(h.e.Snapshot()) == "b"
	}, waitFor, tick)
	assert.Eventually(t, func() bool {
		return len(h.e.Snapshot().History) == 2
	}, waitFor, tick)
}

func TestEngine_EndedReplaysInSingleMode(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(2)
	h.e.SetPlaylist(songs, 0)
	h.e.SetPlayMode(playlist.ModeSingle)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	h.m.Emit(player.Event{Kind: player.EventEnded, Source: songs[0].URL})

	assert.Eventually(t, func() bool { return h.m.PlayCalls() == 2 }, waitFor, tick)
	h.waitStatus(t, StatusPlaying)
	s := h.e.Snapshot()
	assert.Equal(t, "a", currentID(s))
	assert.Equal(t, []string{"a"}, historyIDs(s))
	assert.Len(t, h.m.LoadCalls(), 1)
}

func TestEngine_StaleSourceEventsIgnored(t *testing.T) {
	e := New(Options{})
	t.Cleanup(func() { _ = e.Close() })
	ctx := context.Background()

	e.HandleEvent(ctx, player.Event{Kind: player.EventTimeUpdate, Source: "/other.mp3", Time: 5 * time.Second})
	assert.Zero(t, e.Snapshot().Position)

	e.HandleEvent(ctx, player.Event{Kind: player.EventVolumeChange, Source: "/other.mp3", Volume: 0.25})
	assert.InDelta(t, 0.25, e.Snapshot().Volume, 1e-9, "volume applies whatever the source")
}

func TestEngine_RemoveSoleSong(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(1)
	h.e.SetPlaylist(songs, 0)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	require.NoError(t, await(t, h.e.RemoveSong(h.ctx, "a")))

	s := h.e.Snapshot()
	assert.Empty(t, s.Playlist)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Nil(t, s.Current)
	assert.Equal(t, StatusIdle, s.Status)
}

func TestEngine_RemoveCurrentPlaysFollowing(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(3)
	h.e.SetPlaylist(songs, 1)
	require.NoError(t, await(t, h.e.Play(h.ctx)))

	require.NoError(t, await(t, h.e.RemoveSong(h.ctx, "b")))

	s := h.e.Snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, "c", currentID(s))
	assert.Equal(t, []string{songs[1].URL, songs[2].URL}, h.m.LoadCalls())
}

func TestEngine_RemoveOtherSongKeepsCurrent(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(3), 2)

	require.NoError(t, await(t, h.e.RemoveSong(h.ctx, "a")))
	require.NoError(t, await(t, h.e.RemoveSong(h.ctx, "missing")))

	s := h.e.Snapshot()
	assert.Equal(t, 1, s.CurrentIndex)
	assert.Equal(t, "c", currentID(s))
	assert.Empty(t, h.m.LoadCalls())
}

func TestEngine_VolumeClamped(t *testing.T) {
	tests := []struct {
		level float64
		want  float64
	}{
		{0.5, 0.5},
		{1.5, 1},
		{-0.2, 0},
	}
	for _, tt := range tests {
		e := New(Options{})
		e.SetVolume(tt.level)
		assert.InDelta(t, tt.want, e.Snapshot().Volume, 1e-9, "SetVolume(%v)", tt.level)
		_ = e.Close()
	}
}

func TestEngine_VolumeFollowsTransport(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(1), 0)
	require.NoError(t, await(t, h.e.Play(h.ctx)))

	h.e.SetVolume(0.3)
	h.e.ToggleMute()

	assert.Eventually(t, func() bool {
		s := h.e.Snapshot()
		return s.Muted && s.Volume > 0.29 && s.Volume < 0.31
	}, waitFor, tick)
	vol, muted := h.m.Volume()
	assert.InDelta(t, 0.3, vol, 1e-9)
	assert.True(t, muted)
}

func TestEngine_InitialVolumeAppliedToTransport(t *testing.T) {
	h := newHarness(t)
	h.e.SetVolume(0.4)
	h.e.SetMuted(true)
	h.e.SetPlaylist(testSongs(1), 0)

	require.NoError(t, await(t, h.e.Play(h.ctx)))

	vol, muted := h.m.Volume()
	assert.InDelta(t, 0.4, vol, 1e-9)
	assert.True(t, muted)
}

func TestEngine_SeekClamped(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(1), 0)

	h.e.SetCurrentTime(10 * time.Second)
	assert.Empty(t, h.m.SeekCalls(), "no seek before a duration is known")

	require.NoError(t, await(t, h.e.Play(h.ctx)))
	require.Eventually(t, func() bool {
		return h.e.Snapshot().Duration == 3*time.Minute
	}, waitFor, tick)

	h.e.SetProgress(50)
	h.e.SetProgress(150)
	h.e.SetCurrentTime(-5 * time.Second)
	h.e.SetCurrentTime(time.Minute)

	assert.Equal(t, []time.Duration{90 * time.Second, 3 * time.Minute, 0, time.Minute}, h.m.SeekCalls())
	assert.Eventually(t, func() bool {
		return h.e.Snapshot().Position == time.Minute
	}, waitFor, tick)
}

func TestEngine_TogglePlay(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(2), 0)

	require.NoError(t, await(t, h.e.TogglePlay(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	require.NoError(t, await(t, h.e.TogglePlay(h.ctx)))
	h.waitStatus(t, StatusPaused)

	require.NoError(t, await(t, h.e.TogglePlay(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	assert.Len(t, h.e.Snapshot().History, 1, "resume does not touch the history")
	assert.Len(t, h.m.LoadCalls(), 1)
}

func TestEngine_Stop(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(2), 0)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	h.e.Stop()

	s := h.e.Snapshot()
	assert.Equal(t, StatusIdle, s.Status)
	assert.Zero(t, s.Position)
	assert.Equal(t, 0, s.CurrentIndex, "stop keeps the current song")
	assert.Contains(t, h.m.SeekCalls(), time.Duration(0))
	assert.Never(t, func() bool {
		return h.e.Snapshot().Status != StatusIdle
	}, 100*time.Millisecond, tick, "pause event does not override idle")
}

func TestEngine_ClearPlaylist(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(3), 0)
	h.e.SetPlayMode(playlist.ModeRandom)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	h.waitStatus(t, StatusPlaying)

	h.e.ClearPlaylist()

	s := h.e.Snapshot()
	assert.Empty(t, s.Playlist)
	assert.Empty(t, s.Original)
	assert.Nil(t, s.Current)
	assert.Equal(t, StatusIdle, s.Status)
}

func TestEngine_Destroy(t *testing.T) {
	h := newHarness(t)
	h.e.SetPlaylist(testSongs(3), 1)
	h.e.SetPlayMode(playlist.ModeSingle)
	require.NoError(t, await(t, h.e.Play(h.ctx)))
	sub := h.e.Subscribe()

	h.e.Destroy()

	s := h.e.Snapshot()
	assert.Len(t, s.Playlist, 3)
	assert.Equal(t, playlist.ModeSingle, s.Mode)
	assert.Len(t, s.History, 1)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Zero(t, s.Duration)
	assert.Equal(t, StatusIdle, s.Status)
	assert.True(t, h.m.Closed())

	select {
	case tc := <-sub.TrackChanged:
		assert.Nil(t, tc.Current)
		assert.Equal(t, "b", tc.Previous.ID)
	case <-time.After(waitFor):
		t.Fatal("no track change on destroy")
	}
}

func TestEngine_ShuffleAndRestoreOrder(t *testing.T) {
	h := newHarness(t)
	songs := testSongs(6)
	h.e.SetPlaylist(songs, 2)

	h.e.SetPlayMode(playlist.ModeRandom)
	s := h.e.Snapshot()
	assert.ElementsMatch(t, songs, s.Playlist)
	assert.Equal(t, songs, s.Original)
	assert.Equal(t, "c", currentID(s), "current song survives the shuffle")

	h.e.SetPlayMode(playlist.ModeList)
	s = h.e.Snapshot()
	assert.Equal(t, songs, s.Playlist)
	assert.Empty(t, s.Original)
	assert.Equal(t, 2, s.CurrentIndex)
}

func TestEngine_Restore(t *testing.T) {
	e := New(Options{})
	t.Cleanup(func() { _ = e.Close() })
	songs := testSongs(3)

	e.Restore(Persisted{
		Playlist:     songs,
		CurrentIndex: 1,
		Mode:         playlist.ModeSingle,
		History:      songs[:2],
		Volume:       7,
		Muted:        true,
	})

	s := e.Snapshot()
	assert.Equal(t, songs, s.Playlist)
	assert.Equal(t, "b", currentID(s))
	assert.Equal(t, playlist.ModeSingle, s.Mode)
	assert.Equal(t, []string{"a", "b"}, historyIDs(s))
	assert.InDelta(t, 1, s.Volume, 1e-9)
	assert.True(t, s.Muted)
	assert.Equal(t, StatusIdle, s.Status)
}

func TestEngine_ClosedRejectsPlay(t *testing.T) {
	e := New(Options{NewTransport: func() (player.Transport, error) { return player.NewMock(), nil }})
	e.SetPlaylist(testSongs(1), 0)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, <-e.Play(context.Background()), ErrClosed)
}

func TestEngine_TransportFactoryFailure(t *testing.T) {
	e := New(Options{NewTransport: func() (player.Transport, error) { return nil, errBoom }})
	t.Cleanup(func() { _ = e.Close() })
	e.SetPlaylist(testSongs(1), 0)

	err := <-e.Play(context.Background())

	require.ErrorIs(t, err, errBoom)
	s := e.Snapshot()
	assert.Equal(t, StatusErrored, s.Status)
	assert.Equal(t, ErrorPlaybackFailed, s.ErrKind)
}
