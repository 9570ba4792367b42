package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by a Fetcher when no lyrics exist for a track.
var ErrNotFound = errors.New("lyrics not found")

// RawTracks holds the unparsed text of the three lyric tracks.
type RawTracks struct {
	Original     string `json:"original"`
	Translation  string `json:"translation,omitempty"`
	Romanization string `json:"romanization,omitempty"`
}

// Empty reports whether the original track has no text.
func (r RawTracks) Empty() bool {
	return strings.TrimSpace(r.Original) == ""
}

// TrackRef contains the information needed to fetch lyrics.
type TrackRef struct {
	ID       string
	FilePath string // local audio file, for sidecar .lrc lookup
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// Fetcher retrieves raw lyric text for a track.
type Fetcher interface {
	Fetch(ctx context.Context, track TrackRef) (RawTracks, error)
}

// Cache stores raw lyric payloads by key.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Origin names where a FetchResult came from.
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginCache    Origin = "cache"
	OriginAPI      Origin = "api"
	OriginNotFound Origin = "not_found"
)

// FetchResult contains the result of a lyrics fetch.
type FetchResult struct {
	Document Document
	Origin   Origin
	Err      error
}

// Source provides lyrics from sidecar files, cache, or a remote fetcher.
type Source struct {
	fetcher   Fetcher
	cache     Cache
	tolerance time.Duration
	log       logrus.FieldLogger
}

// NewSource creates a new lyrics source. fetcher and cache may be nil.
func NewSource(fetcher Fetcher, cache Cache, tolerance time.Duration, log logrus.FieldLogger) *Source {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Source{
		fetcher:   fetcher,
		cache:     cache,
		tolerance: tolerance,
		log:       log.WithField("component", "lyrics"),
	}
}

// Fetch retrieves lyrics for a track using the priority order:
// 1. Local .lrc file (same directory as audio file)
// 2. Cached payload
// 3. Remote fetcher (and cache the result)
//
// The returned Document is always displayable: missing lyrics produce the
// "no lyrics" sentinel and failures the "failed" sentinel with Err set.
func (s *Source) Fetch(ctx context.Context, track TrackRef) FetchResult {
	if track.FilePath != "" {
		if raw, err := os.ReadFile(lrcPathForAudio(track.FilePath)); err == nil {
			return s.result(RawTracks{Original: string(raw)}, OriginLocal)
		}
	}

	if s.cache != nil && track.ID != "" {
		if raw, ok := s.loadFromCache(track.ID); ok {
			return s.result(raw, OriginCache)
		}
	}

	if s.fetcher == nil {
		return FetchResult{Document: Build(Tracks{}, s.tolerance), Origin: OriginNotFound}
	}

	raw, err := s.fetcher.Fetch(ctx, track)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return FetchResult{Document: Build(Tracks{}, s.tolerance), Origin: OriginNotFound}
		}
		entry := s.log.WithError(err).WithField("track_id", track.ID)
		if errors.Is(err, context.Canceled) {
			entry.Debug("lyrics fetch canceled")
		} else {
			entry.Warn("lyrics fetch failed")
		}
		return FetchResult{Document: Unavailable(), Origin: OriginNotFound, Err: err}
	}

	if s.cache != nil && track.ID != "" && !raw.Empty() {
		if err := s.saveToCache(track.ID, raw); err != nil {
			s.log.WithError(err).WithField("track_id", track.ID).Debug("lyrics cache write failed")
		}
	}

	return s.result(raw, OriginAPI)
}

func (s *Source) result(raw RawTracks, origin Origin) FetchResult {
	return FetchResult{
		Document: Build(ParseTracks(raw), s.tolerance),
		Origin:   origin,
	}
}

func (s *Source) loadFromCache(id string) (RawTracks, bool) {
	value, ok := s.cache.Get(cacheKey(id))
	if !ok {
		return RawTracks{}, false
	}
	var raw RawTracks
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		s.log.WithError(err).WithField("track_id", id).Debug("discarding unreadable cache entry")
		return RawTracks{}, false
	}
	return raw, true
}

func (s *Source) saveToCache(id string, raw RawTracks) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return s.cache.Set(cacheKey(id), string(data))
}

func cacheKey(id string) string {
	return "lyrics:" + id
}

// lrcPathForAudio returns the expected .lrc file path for an audio file.
func lrcPathForAudio(audioPath string) string {
	audioPath = strings.TrimPrefix(audioPath, "file://")
	ext := filepath.Ext(audioPath)
	return audioPath[:len(audioPath)-len(ext)] + ".lrc"
}
