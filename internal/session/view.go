package session

import (
	"time"

	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/lyrics"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/playlist"
)

// View is a read-only copy of everything a front end renders.
type View struct {
	Current     *playlist.Song
	Index       int
	Status      playback.Status
	Playing     bool
	Paused      bool
	Loading     bool
	Progress    float64
	Position    time.Duration
	Duration    time.Duration
	Mode        playlist.Mode
	Volume      float64
	Muted       bool
	HasNext     bool
	HasPrevious bool

	// Lines are the composed lyric lines with the visible tracks joined.
	Lines         []lyrics.Line
	ActiveIndex   int // -1 without lyrics
	ActiveLine    string
	Positioned    bool
	AutoScroll    bool
	Scale         float64
	Offset        time.Duration
	LyricsStatus  lyrics.Status
	LyricsOrigin  lyrics.Origin
	LyricsLoading bool

	ShowTranslation  bool
	ShowRomanization bool

	// Error and LyricsError are user-facing messages, empty when clear.
	Error       string
	LyricsError string
}

// View returns the current read state.
func (s *Session) View() View {
	snap := s.Snapshot()

	v := View{
		Current:     snap.Current,
		Index:       snap.CurrentIndex,
		Status:      snap.Status,
		Playing:     snap.Playing(),
		Paused:      snap.Paused(),
		Loading:     snap.Loading,
		Progress:    snap.Progress(),
		Position:    snap.Position,
		Duration:    snap.Duration,
		Mode:        snap.Mode,
		Volume:      snap.Volume,
		Muted:       snap.Muted,
		HasNext:     snap.HasNext(),
		HasPrevious: snap.HasPrevious(),
		Error:       playbackError(snap),
		ActiveIndex: -1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs := s.cursor.State()
	v.Lines = lyrics.Compose(s.doc.Lines, s.showTranslation, s.showRomanization)
	if len(v.Lines) > 0 {
		v.ActiveIndex = cs.CurrentIndex
		v.ActiveLine = v.Lines[cs.CurrentIndex].Text
	}
	v.Positioned = cs.Positioned
	v.AutoScroll = cs.AutoScroll
	v.Scale = cs.Scale
	v.Offset = s.cursor.Offset()
	v.LyricsStatus = s.doc.Status
	v.LyricsOrigin = s.lyricsOrigin
	v.LyricsLoading = s.lyricsLoading
	v.ShowTranslation = s.showTranslation
	v.ShowRomanization = s.showRomanization
	v.LyricsError = errmsg.Format(errmsg.OpLyricsFetch, s.lyricsErr)
	return v
}

func playbackError(snap playback.Snapshot) string {
	var op errmsg.Op
	switch snap.ErrKind {
	case playback.ErrorNone:
		return ""
	case playback.ErrorPlaybackFailed:
		op = errmsg.OpPlaybackStart
	case playback.ErrorTransport:
		op = errmsg.OpPlaybackTransport
	case playback.ErrorNoSong:
		op = errmsg.OpPlaybackSelect
	}
	if snap.Current != nil {
		return errmsg.FormatWith(op, snap.Current.Title, snap.Err)
	}
	return errmsg.Format(op, snap.Err)
}
