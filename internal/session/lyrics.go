package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/cadence/internal/lyrics"
)

// syncLyrics starts a fetch for the current song. The same song is not
// fetched twice unless force is set. Each fetch bumps the lyrics generation
// so results of a superseded fetch are dropped.
func (s *Session) syncLyrics(ctx context.Context, force bool) {
	current := s.Snapshot().Current

	s.mu.Lock()
	defer s.mu.Unlock()

	if current == nil {
		s.lyricsGen++
		s.cancelFetchLocked()
		s.docSongID = ""
		s.position = 0
		s.doc = lyrics.Document{}
		s.lyricsLoading = false
		s.lyricsOrigin = ""
		s.lyricsErr = nil
		s.cursor.SetTimeline(nil)
		s.cursor.Reset()
		return
	}
	if !force && current.ID == s.docSongID {
		return
	}

	s.lyricsGen++
	gen := s.lyricsGen
	s.cancelFetchLocked()
	if current.ID != s.docSongID {
		// a new song starts at zero; its first time update may come later
		s.position = 0
	}
	s.docSongID = current.ID
	s.doc = lyrics.Document{}
	s.lyricsErr = nil
	s.lyricsOrigin = ""
	s.cursor.SetTimeline(nil)
	s.cursor.Reset()

	if s.source == nil {
		s.setDocumentLocked(lyrics.Build(lyrics.Tracks{}, 0), lyrics.OriginNotFound, nil)
		return
	}

	s.lyricsLoading = true
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	ref := TrackRef(*current)

	s.log.WithFields(logrus.Fields{
		"song_id": ref.ID,
		"gen":     gen,
		"force":   force,
	}).Debug("fetching lyrics")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.source.Fetch(fetchCtx, ref)
		select {
		case s.results <- lyricsResult{gen: gen, songID: ref.ID, res: res}:
		case <-fetchCtx.Done():
		}
	}()
}

func (s *Session) applyLyrics(r lyricsResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.gen != s.lyricsGen {
		s.log.WithField("song_id", r.songID).Debug("dropping stale lyrics")
		return
	}
	s.cancelFetchLocked()
	s.setDocumentLocked(r.res.Document, r.res.Origin, r.res.Err)
}

func (s *Session) setDocumentLocked(doc lyrics.Document, origin lyrics.Origin, err error) {
	s.doc = doc
	s.lyricsOrigin = origin
	s.lyricsErr = err
	s.lyricsLoading = false
	s.cursor.SetTimeline(lyrics.Timeline(doc.Lines))
	s.cursor.Update(s.position, true)
}

func (s *Session) cancelFetchLocked() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
}

func (s *Session) stopLyrics() {
	s.mu.Lock()
	s.lyricsGen++
	s.cancelFetchLocked()
	s.lyricsLoading = false
	s.mu.Unlock()
}

func (s *Session) updateCursor(pos time.Duration, instant bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = pos
	s.cursor.Update(pos, instant)
}

// RefreshLyrics fetches the current song's lyrics again, bypassing the
// same-song check. Cached and sidecar lyrics still take precedence.
func (s *Session) RefreshLyrics(ctx context.Context) {
	s.syncLyrics(ctx, true)
}

// ToggleAutoScroll flips auto-scroll and returns the new setting.
func (s *Session) ToggleAutoScroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.ToggleAutoScroll(s.position)
}

// IncreaseScale grows the lyric font scale one step.
func (s *Session) IncreaseScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.IncreaseScale()
}

// DecreaseScale shrinks the lyric font scale one step.
func (s *Session) DecreaseScale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.DecreaseScale()
}

// SetLyricOffset shifts lyric timing relative to playback. A positive
// offset shows lines earlier.
func (s *Session) SetLyricOffset(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.SetOffset(d)
	s.cursor.Update(s.position, true)
}

// LyricOffset returns the current lyric offset.
func (s *Session) LyricOffset() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Offset()
}

// ToggleTranslation shows or hides translated lines.
func (s *Session) ToggleTranslation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTranslation = !s.showTranslation
	return s.showTranslation
}

// ToggleRomanization shows or hides romanized lines.
func (s *Session) ToggleRomanization() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showRomanization = !s.showRomanization
	return s.showRomanization
}

// SeekToLine seeks playback to the start of lyric line i.
func (s *Session) SeekToLine(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.doc.Lines) {
		s.mu.Unlock()
		return ErrNoLine
	}
	target := max(0, s.doc.TimeForIndex(i)-s.cursor.Offset())
	s.mu.Unlock()

	s.SetCurrentTime(target)
	return nil
}
