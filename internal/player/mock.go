// internal/player/mock.go
package player

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Transport. It emits the events a real
// transport would and records calls. It is safe for concurrent use.
type Mock struct {
	mu       sync.Mutex
	source   string
	duration time.Duration
	volume   float64
	muted    bool
	playing  bool
	closed   bool
	loadErr  error
	playErr  error
	holdPlay bool
	pending  []chan error

	loadCalls  []string
	playCalls  int
	pauseCalls int
	seekCalls  []time.Duration

	events chan Event
}

// NewMock creates a new mock transport for testing.
func NewMock() *Mock {
	return &Mock{
		volume: 1,
		events: make(chan Event, 256),
	}
}

// Load implements Transport.
func (m *Mock) Load(source string) error {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, source)
	err := m.loadErr
	m.source = ""
	m.playing = false
	if err == nil {
		m.source = source
	}
	d := m.duration
	m.mu.Unlock()

	m.Emit(Event{Kind: EventLoadStart, Source: source})
	if err != nil {
		m.Emit(Event{Kind: EventError, Source: source, Err: err})
		return err
	}
	m.Emit(Event{Kind: EventCanPlay, Source: source, Duration: d})
	return nil
}

// Play implements Transport. While HoldPlay is active each call blocks
// until ReleasePlay settles it.
func (m *Mock) Play(ctx context.Context) error {
	m.mu.Lock()
	m.playCalls++
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	var gate chan error
	if m.holdPlay {
		gate = make(chan error, 1)
		m.pending = append(m.pending, gate)
	}
	err := m.playErr
	m.mu.Unlock()

	if gate != nil {
		select {
		case err = <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.playing = true
	source := m.source
	m.mu.Unlock()
	m.Emit(Event{Kind: EventPlay, Source: source})
	return nil
}

// Pause implements Transport.
func (m *Mock) Pause() {
	m.mu.Lock()
	m.pauseCalls++
	wasPlaying := m.playing
	m.playing = false
	source := m.source
	m.mu.Unlock()

	if wasPlaying {
		m.Emit(Event{Kind: EventPause, Source: source})
	}
}

// Seek implements Transport.
func (m *Mock) Seek(pos time.Duration) {
	m.mu.Lock()
	m.seekCalls = append(m.seekCalls, pos)
	source := m.source
	m.mu.Unlock()

	m.Emit(Event{Kind: EventTimeUpdate, Source: source, Time: pos})
}

// SetVolume implements Transport.
func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	m.volume = ClampVolume(level)
	ev := Event{Kind: EventVolumeChange, Source: m.source, Volume: m.volume, Muted: m.muted}
	m.mu.Unlock()

	m.Emit(ev)
}

// SetMuted implements Transport.
func (m *Mock) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	ev := Event{Kind: EventVolumeChange, Source: m.source, Volume: m.volume, Muted: m.muted}
	m.mu.Unlock()

	m.Emit(ev)
}

// Source implements Transport.
func (m *Mock) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

// Events implements Transport.
func (m *Mock) Events() <-chan Event { return m.events }

// Close implements Transport.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.source = ""
	m.playing = false
	return nil
}

// Test helpers

// Emit sends an event as if the transport produced it. Events are dropped
// when the buffer is full.
func (m *Mock) Emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// SetDuration sets the duration reported by CanPlay on the next Load.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// HoldPlay makes subsequent Play calls block until released.
func (m *Mock) HoldPlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdPlay = true
}

// PendingPlays returns the number of Play calls held so far.
func (m *Mock) PendingPlays() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ReleasePlay settles the i-th held Play call with err.
func (m *Mock) ReleasePlay(i int, err error) {
	m.mu.Lock()
	gate := m.pending[i]
	m.mu.Unlock()
	gate <- err
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) Volume() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume, m.muted
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
