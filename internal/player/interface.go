// internal/player/interface.go
package player

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotLoaded is returned by Play when no source is loaded.
	ErrNotLoaded = errors.New("no source loaded")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// Transport is the media primitive driven by the playback engine.
// Methods must be safe for concurrent use. State changes are reported
// through Events, which is the only source of truth for playing, paused,
// duration and position.
type Transport interface {
	// Load replaces the current source. It emits LoadStart then CanPlay,
	// or Error if the source cannot be opened.
	Load(source string) error
	// Play starts or resumes playback and blocks until the transport has
	// started or rejected the request.
	Play(ctx context.Context) error
	Pause()
	// Seek moves to an absolute position.
	Seek(pos time.Duration)
	// SetVolume sets the level, clamped to [0, 1].
	SetVolume(level float64)
	SetMuted(muted bool)
	// Source returns the currently loaded source, or "" if none.
	Source() string
	Events() <-chan Event
	// Close stops playback and releases the device. Events is never
	// closed; no further events are sent after Close returns.
	Close() error
}

// Verify implementations at compile time.
var (
	_ Transport = (*Beep)(nil)
	_ Transport = (*Mock)(nil)
)
