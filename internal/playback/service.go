package playback

import (
	"context"
	"time"

	"github.com/llehouerou/cadence/internal/player"
	"github.com/llehouerou/cadence/internal/playlist"
)

// Service defines the playback engine contract.
//
// Methods returning <-chan error start an asynchronous play request. The
// channel receives exactly one value once the request settles: nil on
// success, ErrSuperseded when a later request overtook it, or the failure
// (also recorded in the state).
type Service interface {
	// Playlist
	SetPlaylist(songs []playlist.Song, startIndex int)
	AddSong(song playlist.Song)
	AddSongs(songs []playlist.Song)
	RemoveSong(ctx context.Context, id string) <-chan error
	ClearPlaylist()
	ShufflePlaylist()

	// Playback control
	PlaySong(ctx context.Context, song *playlist.Song, index int) <-chan error
	Play(ctx context.Context) <-chan error
	PlayIndex(ctx context.Context, index int) <-chan error
	NextSong(ctx context.Context) <-chan error
	PreviousSong(ctx context.Context) <-chan error
	HandleSongEnd(ctx context.Context) <-chan error
	Pause()
	Resume(ctx context.Context) <-chan error
	TogglePlay(ctx context.Context) <-chan error
	Stop()

	// Mode control
	TogglePlayMode() playlist.Mode
	SetPlayMode(mode playlist.Mode)

	// Output
	SetVolume(level float64)
	ToggleMute()
	SetMuted(muted bool)
	SetCurrentTime(pos time.Duration)
	SetProgress(percent float64)

	// History and errors
	ClearHistory()
	ClearError()

	// Transport events
	TransportEvents() <-chan player.Event
	HandleEvent(ctx context.Context, ev player.Event)

	// State queries
	Snapshot() Snapshot
	Restore(p Persisted)

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Destroy()
	Close() error
}
