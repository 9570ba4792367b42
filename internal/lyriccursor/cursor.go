// Package lyriccursor tracks the active lyric line for a playback position
// and drives scroll positioning of the lyrics view.
package lyriccursor

import (
	"sort"
	"time"
)

// Scale defaults.
const (
	DefaultScaleStep = 0.05
	DefaultMinScale  = 0.8
	DefaultMaxScale  = 1.4
)

// Scroller receives scroll requests. Implementations must not block:
// animated scrolls are fire-and-forget.
type Scroller interface {
	ScrollTo(index int, animate bool)
}

// ScrollFunc adapts a function to Scroller.
type ScrollFunc func(index int, animate bool)

// ScrollTo implements Scroller.
func (f ScrollFunc) ScrollTo(index int, animate bool) { f(index, animate) }

// Config holds cursor settings. Zero values select the defaults.
type Config struct {
	Offset    time.Duration
	ScaleStep float64
	MinScale  float64
	MaxScale  float64
}

func (c Config) withDefaults() Config {
	if c.ScaleStep <= 0 {
		c.ScaleStep = DefaultScaleStep
	}
	if c.MinScale <= 0 {
		c.MinScale = DefaultMinScale
	}
	if c.MaxScale <= 0 || c.MaxScale < c.MinScale {
		c.MaxScale = DefaultMaxScale
	}
	return c
}

// State is the observable cursor state.
type State struct {
	CurrentIndex int
	Positioned   bool
	AutoScroll   bool
	Scale        float64
}

// Cursor maps playback time to the active lyric line.
// It is not safe for concurrent use.
type Cursor struct {
	cfg      Config
	scroller Scroller
	times    []time.Duration
	state    State
	offset   time.Duration
}

// New creates a cursor. scroller may be nil.
func New(cfg Config, scroller Scroller) *Cursor {
	cfg = cfg.withDefaults()
	return &Cursor{
		cfg:      cfg,
		scroller: scroller,
		offset:   cfg.Offset,
		state: State{
			AutoScroll: true,
			Scale:      1,
		},
	}
}

// State returns a copy of the cursor state.
func (c *Cursor) State() State { return c.state }

// Offset returns the lyric time offset.
func (c *Cursor) Offset() time.Duration { return c.offset }

// SetOffset sets the lyric time offset added to the playback time.
func (c *Cursor) SetOffset(d time.Duration) { c.offset = d }

// SetTimeline replaces the line start times. times must be non-decreasing.
func (c *Cursor) SetTimeline(times []time.Duration) {
	c.times = append(c.times[:0], times...)
	if c.state.CurrentIndex >= len(c.times) {
		c.state.CurrentIndex = 0
	}
}

// Len returns the number of lines in the timeline.
func (c *Cursor) Len() int { return len(c.times) }

// Update resolves the active line for the playback time and issues scroll
// requests. instant forces an unanimated scroll. It returns true when the
// active index changed. An empty timeline leaves the state untouched.
func (c *Cursor) Update(current time.Duration, instant bool) bool {
	if len(c.times) == 0 {
		return false
	}

	idx := c.resolve(current + c.offset)
	if idx != c.state.CurrentIndex {
		c.state.CurrentIndex = idx
		if c.state.AutoScroll {
			c.scroll(instant)
		}
		return true
	}
	if !c.state.Positioned && c.state.AutoScroll {
		c.scroll(instant)
	}
	return false
}

// resolve scans forward from the last resolved index and falls back to a
// binary search when time moved backwards.
func (c *Cursor) resolve(t time.Duration) int {
	i := c.state.CurrentIndex
	if i < 0 || i >= len(c.times) || t < c.times[i] {
		return Resolve(c.times, t)
	}
	for i+1 < len(c.times) && c.times[i+1] <= t {
		i++
	}
	return i
}

// Resolve returns the greatest i with times[i] <= t. Times before the first
// line resolve to 0, and -1 is returned only for an empty timeline.
func Resolve(times []time.Duration, t time.Duration) int {
	if len(times) == 0 {
		return -1
	}
	// first index whose time is strictly after t
	after := sort.Search(len(times), func(i int) bool { return times[i] > t })
	if after == 0 {
		return 0
	}
	return after - 1
}

// scroll positions the view on the current line. The first scroll after a
// reset, or any instant scroll, is unanimated.
func (c *Cursor) scroll(instant bool) {
	if c.state.CurrentIndex < 0 {
		return
	}
	animate := !instant && c.state.Positioned
	c.state.Positioned = true
	if c.scroller != nil {
		c.scroller.ScrollTo(c.state.CurrentIndex, animate)
	}
}

// ScrollToCurrent re-issues a scroll for the current line.
func (c *Cursor) ScrollToCurrent(instant bool) {
	if len(c.times) == 0 {
		return
	}
	c.scroll(instant)
}

// Reset clears the highlighted line and positioning. Call it on track
// change, before the new lyrics arrive.
func (c *Cursor) Reset() {
	c.state.CurrentIndex = 0
	c.state.Positioned = false
}

// ToggleAutoScroll flips auto-scroll. Re-enabling immediately repositions
// on the line for current without animation.
func (c *Cursor) ToggleAutoScroll(current time.Duration) bool {
	c.state.AutoScroll = !c.state.AutoScroll
	if c.state.AutoScroll && len(c.times) > 0 {
		// the view may lag the index after scrolling was off
		c.state.CurrentIndex = c.resolve(current + c.offset)
		c.scroll(true)
	}
	return c.state.AutoScroll
}

// SetAutoScroll enables or disables auto-scroll without repositioning.
func (c *Cursor) SetAutoScroll(enabled bool) {
	c.state.AutoScroll = enabled
}

// IncreaseScale grows the font scale by one step, up to the maximum.
func (c *Cursor) IncreaseScale() float64 {
	c.state.Scale = min(c.cfg.MaxScale, c.state.Scale+c.cfg.ScaleStep)
	return c.state.Scale
}

// DecreaseScale shrinks the font scale by one step, down to the minimum.
func (c *Cursor) DecreaseScale() float64 {
	c.state.Scale = max(c.cfg.MinScale, c.state.Scale-c.cfg.ScaleStep)
	return c.state.Scale
}
