package controller

import (
	"sync"

	"github.com/castkit/castkit/internal/domain"
)

const eventBufferSize = 16

// EpisodesLoadedEvent carries the full episode list after a provider fetch.
type EpisodesLoadedEvent struct {
	Episodes []domain.Episode
}

// EpisodeChangedEvent is emitted when the current selection moves.
type EpisodeChangedEvent struct {
	Index   int
	Episode domain.Episode
}

// NowPlayingEvent carries the display metadata for the loaded episode.
type NowPlayingEvent struct {
	Title   string
	Podcast string
	Artwork string
}

// ErrorEvent surfaces provider and engine failures to host observers.
type ErrorEvent struct {
	Op  string
	Err error
}

// Subscription provides controller event channels for one observer.
// Channels are buffered and never block the controller: events are dropped
// when a buffer is full. Close releases the subscription; Done is closed
// with it.
type Subscription struct {
	Episodes   <-chan EpisodesLoadedEvent
	Episode    <-chan EpisodeChangedEvent
	NowPlaying <-chan NowPlayingEvent
	Error      <-chan ErrorEvent
	Done       <-chan struct{}

	episodesCh   chan EpisodesLoadedEvent
	episodeCh    chan EpisodeChangedEvent
	nowPlayingCh chan NowPlayingEvent
	errorCh      chan ErrorEvent
	doneCh       chan struct{}

	cancel    func()
	closeOnce sync.Once
}

func newSubscription() *Subscription {
	s := &Subscription{
		episodesCh:   make(chan EpisodesLoadedEvent, eventBufferSize),
		episodeCh:    make(chan EpisodeChangedEvent, eventBufferSize),
		nowPlayingCh: make(chan NowPlayingEvent, eventBufferSize),
		errorCh:      make(chan ErrorEvent, eventBufferSize),
		doneCh:       make(chan struct{}),
	}
	s.Episodes = s.episodesCh
	s.Episode = s.episodeCh
	s.NowPlaying = s.nowPlayingCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// Close detaches the subscription from its controller and closes Done. Safe
// to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		close(s.doneCh)
	})
}

func (s *Subscription) sendEpisodes(e EpisodesLoadedEvent) {
	select {
	case s.episodesCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendEpisode(e EpisodeChangedEvent) {
	select {
	case s.episodeCh <- e:
	default:
	}
}

func (s *Subscription) sendNowPlaying(e NowPlayingEvent) {
	select {
	case s.nowPlayingCh <- e:
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

func (e *emitter) each(fn func(*Subscription)) {
	e.mu.Lock()
	subs := make([]*Subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, s := range subs {
		fn(s)
	}
}

func (e *emitter) closeAll() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}
