// internal/playback/state.go
package playback

import (
	"errors"
	"time"

	"github.com/llehouerou/cadence/internal/playlist"
)

var (
	// ErrNoSong is recorded when a play request resolves no current song.
	ErrNoSong = errors.New("no song to play")
	// ErrSuperseded completes a play request overtaken by a later one.
	ErrSuperseded = errors.New("superseded by a later play request")
	// ErrInvalidIndex is returned by PlayIndex for an out-of-range index.
	ErrInvalidIndex = errors.New("index out of range")
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine closed")
)

// Status is the playback state machine.
//
//	Idle ──play──▶ Loading ──▶ Playing ⇄ Paused
//	                  │           │         │
//	                  └───────────┴─────────┴──▶ Errored (source failure)
//	Playing ──end──▶ Ended
//
// Errored is left by any later successful play request.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusEnded
	StatusErrored
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusEnded:
		return "Ended"
	case StatusErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a song is loaded and playing or paused.
func (s Status) IsActive() bool {
	return s == StatusPlaying || s == StatusPaused
}

// ErrorKind classifies the error recorded in the engine state.
type ErrorKind int

const (
	ErrorNone           ErrorKind = iota
	ErrorPlaybackFailed           // transport rejected load or play
	ErrorTransport                // runtime media error event
	ErrorNoSong                   // nothing to play
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "None"
	case ErrorPlaybackFailed:
		return "PlaybackFailed"
	case ErrorTransport:
		return "Transport"
	case ErrorNoSong:
		return "NoSong"
	default:
		return "Unknown"
	}
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	Status       Status
	Loading      bool
	Playlist     []playlist.Song
	Original     []playlist.Song // pre-shuffle order, empty outside a shuffle session
	CurrentIndex int
	Current      *playlist.Song
	Mode         playlist.Mode
	History      []playlist.Song
	Volume       float64
	Muted        bool
	Position     time.Duration
	Duration     time.Duration
	ErrKind      ErrorKind
	Err          error
}

// Playing reports whether the transport is playing.
func (s Snapshot) Playing() bool { return s.Status == StatusPlaying }

// Paused reports whether the transport is paused.
func (s Snapshot) Paused() bool { return s.Status == StatusPaused }

// Progress returns the position as a percentage of the duration, or 0 when
// the duration is unknown.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Position) / float64(s.Duration) * 100
}

// HasNext reports whether a following song exists without wrapping.
func (s Snapshot) HasNext() bool {
	if s.Mode == playlist.ModeSingle {
		return true
	}
	return s.CurrentIndex < len(s.Playlist)-1
}

// HasPrevious reports whether a preceding song exists without wrapping.
func (s Snapshot) HasPrevious() bool {
	if s.Mode == playlist.ModeSingle {
		return true
	}
	return s.CurrentIndex > 0
}
