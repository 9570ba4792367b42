package playback

import "sync"

const eventBufferSize = 16

// Subscription delivers engine events. Every channel is buffered; a
// subscriber that falls behind loses events instead of stalling the engine.
// Done is closed when the engine closes.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	stateCh    chan StateChange
	trackCh    chan TrackChange
	positionCh chan PositionChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.PositionChanged = s.positionCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() { close(s.doneCh) }

func (s *Subscription) sendState(e StateChange)       { offer(s.stateCh, e) }
func (s *Subscription) sendTrack(e TrackChange)       { offer(s.trackCh, e) }
func (s *Subscription) sendPosition(e PositionChange) { offer(s.positionCh, e) }
func (s *Subscription) sendQueue(e QueueChange)       { offer(s.queueCh, e) }
func (s *Subscription) sendMode(e ModeChange)         { offer(s.modeCh, e) }
func (s *Subscription) sendError(e ErrorEvent)        { offer(s.errorCh, e) }

// offer sends v unless ch is full.
func offer[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// hub is the set of live subscriptions of an engine. Once closed, new
// subscriptions are returned already done.
type hub struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
}

func (h *hub) subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := newSubscription()
	if h.closed {
		sub.close()
		return sub
	}
	h.subs = append(h.subs, sub)
	return sub
}

// each calls fn for every live subscription.
func (h *hub) each(fn func(*Subscription)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		fn(sub)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		sub.close()
	}
	h.subs = nil
	h.closed = true
}
