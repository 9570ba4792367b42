package player

import (
	"fmt"
	"time"
)

// EventKind identifies a transport lifecycle event.
type EventKind int

const (
	EventLoadStart EventKind = iota
	EventCanPlay
	EventPlay
	EventPause
	EventEnded
	EventTimeUpdate
	EventVolumeChange
	EventError
)

// String returns the event name for debugging.
func (k EventKind) String() string {
	switch k {
	case EventLoadStart:
		return "LoadStart"
	case EventCanPlay:
		return "CanPlay"
	case EventPlay:
		return "Play"
	case EventPause:
		return "Pause"
	case EventEnded:
		return "Ended"
	case EventTimeUpdate:
		return "TimeUpdate"
	case EventVolumeChange:
		return "VolumeChange"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Event is a transport lifecycle notification. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind     EventKind
	Source   string
	Time     time.Duration // TimeUpdate
	Duration time.Duration // CanPlay
	Volume   float64       // VolumeChange
	Muted    bool          // VolumeChange
	Err      error         // Error
}

func (e Event) String() string {
	switch e.Kind {
	case EventCanPlay:
		return fmt.Sprintf("CanPlay(%v)", e.Duration)
	case EventTimeUpdate:
		return fmt.Sprintf("TimeUpdate(%v)", e.Time)
	case EventVolumeChange:
		return fmt.Sprintf("VolumeChange(%.2f, muted=%t)", e.Volume, e.Muted)
	case EventError:
		return fmt.Sprintf("Error(%v)", e.Err)
	default:
		return e.Kind.String()
	}
}
