package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	speakerRate    = beep.SampleRate(44100)
	timeUpdateTick = 250 * time.Millisecond
	eventBuffer    = 64
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker opens the output device once per process. Sources with other
// sample rates are resampled.
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// Beep is a Transport backed by the beep speaker. It plays local files.
type Beep struct {
	mu       sync.Mutex
	source   string
	loadGen  uint64
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	started  bool // stream handed to the speaker
	level    float64
	muted    bool
	closed   bool
	stopTick chan struct{}

	events chan Event
	done   chan struct{}
}

// NewBeep creates a transport. The speaker is opened on first Play.
func NewBeep() *Beep {
	return &Beep{
		level:  1,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events implements Transport.
func (b *Beep) Events() <-chan Event { return b.events }

// Source implements Transport.
func (b *Beep) Source() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.source
}

// Load implements Transport.
func (b *Beep) Load(source string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.unloadLocked()
	b.source = source
	b.loadGen++
	gen := b.loadGen
	b.mu.Unlock()

	b.emit(Event{Kind: EventLoadStart, Source: source})

	streamer, format, err := decode(source)
	if err != nil {
		b.mu.Lock()
		if b.loadGen == gen {
			b.source = ""
		}
		b.mu.Unlock()
		b.emit(Event{Kind: EventError, Source: source, Err: err})
		return err
	}

	b.mu.Lock()
	if b.closed || b.loadGen != gen {
		// superseded while decoding
		b.mu.Unlock()
		streamer.Close()
		return nil
	}
	var s beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		s = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}
	b.streamer = streamer
	b.format = format
	b.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	b.volume = &effects.Volume{
		Streamer: b.ctrl,
		Base:     2,
		Volume:   levelToVolume(b.level),
		Silent:   b.muted,
	}
	duration := format.SampleRate.D(streamer.Len())
	b.mu.Unlock()

	b.emit(Event{Kind: EventCanPlay, Source: source, Duration: duration})
	return nil
}

// Play implements Transport. A stream that reached its end restarts from
// the beginning.
func (b *Beep) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.ctrl == nil {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if !b.started {
		b.started = true
		gen := b.loadGen
		speaker.Play(beep.Seq(b.volume, beep.Callback(func() {
			// runs under the speaker lock
			go b.finished(gen)
		})))
	}
	speaker.Lock()
	b.ctrl.Paused = false
	speaker.Unlock()
	b.startTickerLocked()
	source := b.source
	b.mu.Unlock()

	b.emit(Event{Kind: EventPlay, Source: source})
	return nil
}

// Pause implements Transport.
func (b *Beep) Pause() {
	b.mu.Lock()
	if b.ctrl == nil || !b.started || b.ctrl.Paused {
		b.mu.Unlock()
		return
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.stopTickerLocked()
	source := b.source
	b.mu.Unlock()

	b.emit(Event{Kind: EventPause, Source: source})
}

// Seek implements Transport. The position is clamped to the stream.
func (b *Beep) Seek(pos time.Duration) {
	b.mu.Lock()
	if b.streamer == nil {
		b.mu.Unlock()
		return
	}
	n := min(max(b.format.SampleRate.N(pos), 0), b.streamer.Len())
	speaker.Lock()
	err := b.streamer.Seek(n)
	speaker.Unlock()
	actual := b.format.SampleRate.D(n)
	source := b.source
	b.mu.Unlock()

	if err != nil {
		b.emit(Event{Kind: EventError, Source: source, Err: fmt.Errorf("seek: %w", err)})
		return
	}
	b.emit(Event{Kind: EventTimeUpdate, Source: source, Time: actual})
}

// SetVolume implements Transport.
func (b *Beep) SetVolume(level float64) {
	b.mu.Lock()
	b.level = ClampVolume(level)
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = levelToVolume(b.level)
		speaker.Unlock()
	}
	ev := Event{Kind: EventVolumeChange, Source: b.source, Volume: b.level, Muted: b.muted}
	b.mu.Unlock()

	b.emit(ev)
}

// SetMuted implements Transport.
func (b *Beep) SetMuted(muted bool) {
	b.mu.Lock()
	b.muted = muted
	if b.volume != nil {
		speaker.Lock()
		b.volume.Silent = muted
		speaker.Unlock()
	}
	ev := Event{Kind: EventVolumeChange, Source: b.source, Volume: b.level, Muted: b.muted}
	b.mu.Unlock()

	b.emit(ev)
}

// Close implements Transport.
func (b *Beep) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.unloadLocked()
	close(b.done)
	return nil
}

// finished handles the end of the stream loaded under gen.
func (b *Beep) finished(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.loadGen || b.streamer == nil {
		b.mu.Unlock()
		return
	}
	b.stopTickerLocked()
	b.started = false
	speaker.Lock()
	b.ctrl.Paused = true
	_ = b.streamer.Seek(0)
	speaker.Unlock()
	source := b.source
	b.mu.Unlock()

	b.emit(Event{Kind: EventEnded, Source: source})
}

func (b *Beep) unloadLocked() {
	b.stopTickerLocked()
	if b.started {
		speaker.Clear()
		b.started = false
	}
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	b.ctrl = nil
	b.volume = nil
	b.source = ""
}

func (b *Beep) startTickerLocked() {
	if b.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	b.stopTick = stop
	go b.tick(stop)
}

func (b *Beep) stopTickerLocked() {
	if b.stopTick != nil {
		close(b.stopTick)
		b.stopTick = nil
	}
}

func (b *Beep) tick(stop <-chan struct{}) {
	ticker := time.NewTicker(timeUpdateTick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			if b.streamer == nil {
				b.mu.Unlock()
				continue
			}
			speaker.Lock()
			pos := b.format.SampleRate.D(b.streamer.Position())
			speaker.Unlock()
			source := b.source
			b.mu.Unlock()
			b.emit(Event{Kind: EventTimeUpdate, Source: source, Time: pos})
		}
	}
}

// emit delivers an event. Time updates are dropped when the consumer lags;
// other events wait for the consumer until the transport is closed.
func (b *Beep) emit(ev Event) {
	if ev.Kind == EventTimeUpdate {
		select {
		case b.events <- ev:
		default:
		}
		return
	}
	select {
	case b.events <- ev:
	case <-b.done:
	}
}
