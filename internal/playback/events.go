package playback

import (
	"time"

	"github.com/llehouerou/cadence/internal/playlist"
)

// StateChange is emitted when the playback status changes.
type StateChange struct {
	Previous Status
	Current  Status
}

// TrackChange is emitted when a play request selects a different song, and
// when the current song is cleared.
type TrackChange struct {
	Previous      *playlist.Song
	Current       *playlist.Song
	PreviousIndex int
	Index         int
}

// QueueChange is emitted when the playlist contents or order change.
type QueueChange struct {
	Songs []playlist.Song
	Index int
}

// ModeChange is emitted when the play mode changes.
type ModeChange struct {
	Mode playlist.Mode
}

// PositionChange is emitted on transport time updates.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// ErrorEvent is emitted when an error is recorded.
type ErrorEvent struct {
	Kind   ErrorKind
	SongID string
	Err    error
}
