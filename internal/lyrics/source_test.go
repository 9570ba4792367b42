package lyrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	raw   RawTracks
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ TrackRef) (RawTracks, error) {
	f.calls++
	return f.raw, f.err
}

type mapCache map[string]string

func (m mapCache) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) Set(key, value string) error {
	m[key] = value
	return nil
}

func TestSource_Fetch_FromAPIAndCaches(t *testing.T) {
	f := &fakeFetcher{raw: RawTracks{
		Original:    "[00:01.00]hello",
		Translation: "[00:01.00]bonjour",
	}}
	cache := mapCache{}
	src := NewSource(f, cache, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "42"})

	require.NoError(t, res.Err)
	assert.Equal(t, OriginAPI, res.Origin)
	assert.Equal(t, StatusOK, res.Document.Status)
	require.Len(t, res.Document.Lines, 1)
	assert.Equal(t, "bonjour", res.Document.Lines[0].Translation)
	assert.Contains(t, cache, "lyrics:42")

	again := src.Fetch(context.Background(), TrackRef{ID: "42"})
	assert.Equal(t, OriginCache, again.Origin)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, res.Document, again.Document)
}

func TestSource_Fetch_NotFoundIsSentinel(t *testing.T) {
	src := NewSource(&fakeFetcher{err: ErrNotFound}, nil, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "1"})

	require.NoError(t, res.Err)
	assert.Equal(t, OriginNotFound, res.Origin)
	assert.Equal(t, StatusParseEmpty, res.Document.Status)
	assert.Equal(t, NoLyricsText, res.Document.Lines[0].Original)
}

func TestSource_Fetch_FailureIsUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	src := NewSource(&fakeFetcher{err: boom}, nil, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "1"})

	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, StatusUnavailable, res.Document.Status)
	assert.Equal(t, FetchFailedText, res.Document.Lines[0].Original)
}

func TestSource_Fetch_CanceledIsNotWarned(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewSource(&fakeFetcher{err: fmt.Errorf("get: %w", context.Canceled)}, nil, 0, log)

	res := src.Fetch(ctx, TrackRef{ID: "1"})

	assert.ErrorIs(t, res.Err, context.Canceled)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, e.Message)
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "lyrics fetch canceled", hook.LastEntry().Message)
}

func TestSource_Fetch_EmptyPayloadIsParseEmpty(t *testing.T) {
	cache := mapCache{}
	src := NewSource(&fakeFetcher{raw: RawTracks{Original: "no timestamps here"}}, cache, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "7"})

	assert.Equal(t, StatusParseEmpty, res.Document.Status)
	assert.Contains(t, cache, "lyrics:7")
}

func TestSource_Fetch_PrefersSidecarFile(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "song.flac")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.lrc"), []byte("[00:02.00]local"), 0o600))
	f := &fakeFetcher{raw: RawTracks{Original: "[00:01.00]remote"}}
	src := NewSource(f, nil, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "1", FilePath: "file://" + audio})

	assert.Equal(t, OriginLocal, res.Origin)
	assert.Equal(t, "local", res.Document.Lines[0].Original)
	assert.Zero(t, f.calls)
}

func TestSource_Fetch_IgnoresCorruptCacheEntry(t *testing.T) {
	cache := mapCache{"lyrics:9": "{not json"}
	f := &fakeFetcher{raw: RawTracks{Original: "[00:01.00]fresh"}}
	src := NewSource(f, cache, 0, nil)

	res := src.Fetch(context.Background(), TrackRef{ID: "9"})

	assert.Equal(t, OriginAPI, res.Origin)
	assert.Equal(t, 1, f.calls)
}

func TestLrcPathForAudio(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/music/a.mp3", "/music/a.lrc"},
		{"file:///music/b.flac", "/music/b.lrc"},
		{"/music/noext", "/music/noext.lrc"},
	}
	for _, tt := range tests {
		if got := lrcPathForAudio(tt.in); got != tt.want {
			t.Errorf("lrcPathForAudio(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
