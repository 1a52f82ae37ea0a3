package engine

import (
	"sync"
	"time"
)

const eventBufferSize = 16

// PausedEvent carries the offset at the moment playback paused.
type PausedEvent struct {
	Position time.Duration
}

// ProgressEvent is emitted periodically while a source is loaded. Percent
// is in [0,100] and is 0 when the duration is unknown.
type ProgressEvent struct {
	Position time.Duration
	Duration time.Duration
	Percent  float64
}

// LoadedEvent is emitted once a new source's metadata is known.
type LoadedEvent struct {
	Duration time.Duration
}

// ErrorEvent is emitted when an engine operation fails.
type ErrorEvent struct {
	Op  string // short context tag, e.g. "play", "load"
	Err error
}

// Subscription provides event channels for one observer. Channels are
// buffered and never block the engine: events are dropped when a buffer is
// full. Close releases the subscription; Done is closed with it.
type Subscription struct {
	Started  <-chan struct{}
	Paused   <-chan PausedEvent
	Stopped  <-chan struct{}
	Ended    <-chan struct{}
	Progress <-chan ProgressEvent
	Loaded   <-chan LoadedEvent
	Error    <-chan ErrorEvent
	Done     <-chan struct{}

	startedCh  chan struct{}
	pausedCh   chan PausedEvent
	stoppedCh  chan struct{}
	endedCh    chan struct{}
	progressCh chan ProgressEvent
	loadedCh   chan LoadedEvent
	errorCh    chan ErrorEvent
	doneCh     chan struct{}

	cancel    func()
	closeOnce sync.Once
}

func newSubscription() *Subscription {
	s := &Subscription{
		startedCh:  make(chan struct{}, eventBufferSize),
		pausedCh:   make(chan PausedEvent, eventBufferSize),
		stoppedCh:  make(chan struct{}, eventBufferSize),
		endedCh:    make(chan struct{}, eventBufferSize),
		progressCh: make(chan ProgressEvent, eventBufferSize),
		loadedCh:   make(chan LoadedEvent, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.Started = s.startedCh
	s.Paused = s.pausedCh
	s.Stopped = s.stoppedCh
	s.Ended = s.endedCh
	s.Progress = s.progressCh
	s.Loaded = s.loadedCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// Close detaches the subscription from its engine and closes Done. Safe to
// call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		close(s.doneCh)
	})
}

func (s *Subscription) sendStarted() {
	select {
	case s.startedCh <- struct{}{}:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendPaused(e PausedEvent) {
	select {
	case s.pausedCh <- e:
	default:
	}
}

func (s *Subscription) sendStopped() {
	select {
	case s.stoppedCh <- struct{}{}:
	default:
	}
}

func (s *Subscription) sendEnded() {
	select {
	case s.endedCh <- struct{}{}:
	default:
	}
}

func (s *Subscription) sendProgress(e ProgressEvent) {
	select {
	case s.progressCh <- e:
	default:
	}
}

func (s *Subscription) sendLoaded(e LoadedEvent) {
	select {
	case s.loadedCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}

// emitter fans events out to all live subscriptions.
type emitter struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (e *emitter) subscribe() *Subscription {
	s := newSubscription()
	s.cancel = func() { e.remove(s) }
	e.mu.Lock()
	e.subs = append(e.subs, s)
	e.mu.Unlock()
	return s
}

func (e *emitter) remove(s *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub == s {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// each invokes fn for every live subscription.
func (e *emitter) each(fn func(*Subscription)) {
	e.mu.Lock()
	subs := make([]*Subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, s := range subs {
		fn(s)
	}
}

// closeAll closes every subscription, detaching all observers.
func (e *emitter) closeAll() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}
