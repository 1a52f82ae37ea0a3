// Package controller orchestrates the episode list, the playback engine and
// the persistence stores: it restores the previous session, keeps resume
// positions saved while playing, and fans domain events out to observers.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/castkit/castkit/internal/domain"
	"github.com/castkit/castkit/internal/engine"
	"github.com/castkit/castkit/internal/store"
)

// DefaultSaveInterval is how often the resume position is persisted while
// playback is running.
const DefaultSaveInterval = 5 * time.Second

// EpisodeSource yields the episode list. Satisfied by provider.Provider.
type EpisodeSource interface {
	Episodes(ctx context.Context) ([]domain.Episode, error)
}

// Controller ties an Engine, an EpisodeSource and the stores together. It is
// safe for use from multiple goroutines; host calls and the engine event
// loop serialize on one mutex.
//
// The controller never closes the engine: the caller owns it and closes it
// after Close returns.
type Controller struct {
	engine       engine.Engine
	source       EpisodeSource
	positions    *store.PositionStore
	states       *store.StateStore
	saveInterval time.Duration
	logger       *slog.Logger

	emitter emitter

	mu       sync.Mutex
	episodes []domain.Episode
	index    int // -1 means nothing selected

	tickerStop chan struct{} // nil when no save ticker is running

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a controller and restores the persisted speed and volume into
// the engine. saveInterval <= 0 selects DefaultSaveInterval.
func New(eng engine.Engine, source EpisodeSource, positions *store.PositionStore, states *store.StateStore, saveInterval time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if saveInterval <= 0 {
		saveInterval = DefaultSaveInterval
	}
	c := &Controller{
		engine:       eng,
		source:       source,
		positions:    positions,
		states:       states,
		saveInterval: saveInterval,
		logger:       logger,
		index:        -1,
		done:         make(chan struct{}),
	}

	if speed, ok := states.LoadSpeed(); ok {
		eng.SetRate(speed)
	}
	if state, ok := states.LoadState(); ok {
		eng.SetVolume(state.Volume)
	}

	c.wg.Add(1)
	go c.loop(eng.Subscribe())
	return c
}

// LoadEpisodes fetches the episode list, replaces the current one wholesale,
// prunes resume positions that no longer match any episode, and restores the
// previously selected episode (loaded at its saved position, not playing).
// The loaded event and the prune both happen before the index restore.
func (c *Controller) LoadEpisodes(ctx context.Context) error {
	episodes, err := c.source.Episodes(ctx)
	if err != nil {
		c.emitError("episodes", err)
		return err
	}

	c.mu.Lock()
	c.episodes = episodes
	c.index = -1
	c.mu.Unlock()

	ids := make([]string, len(episodes))
	for i, ep := range episodes {
		ids[i] = ep.ID
	}
	c.positions.Prune(ids)

	c.logger.Info("episodes loaded", "count", len(episodes))
	c.emitter.each(func(s *Subscription) { s.sendEpisodes(EpisodesLoadedEvent{Episodes: episodes}) })

	if state, ok := c.states.LoadState(); ok {
		if i := state.CurrentEpisodeIndex; i >= 0 && i < len(episodes) {
			c.LoadEpisode(i, false)
		}
	}
	return nil
}

// LoadEpisode makes episode i current: the outgoing episode's position is
// saved, the new source is loaded at its saved resume position, and the
// selection is persisted. Out-of-range indices are a no-op. autoPlay starts
// playback once loaded.
func (c *Controller) LoadEpisode(i int, autoPlay bool) {
	c.mu.Lock()
	if i < 0 || i >= len(c.episodes) {
		c.mu.Unlock()
		return
	}
	ep := c.episodes[i]
	c.mu.Unlock()

	c.savePosition()
	c.stopSaveTicker()

	start, _ := c.positions.Get(ep.ID)
	if err := c.engine.Load(ep.AudioURL, start); err != nil {
		c.emitError("load", err)
		return
	}

	c.mu.Lock()
	c.index = i
	c.mu.Unlock()

	c.states.SaveState(domain.PlayerState{CurrentEpisodeIndex: i, Volume: c.engine.Volume()})
	c.logger.Info("episode loaded", "index", i, "id", ep.ID, "resume", start)

	c.emitter.each(func(s *Subscription) {
		s.sendEpisode(EpisodeChangedEvent{Index: i, Episode: ep})
		s.sendNowPlaying(NowPlayingEvent{Title: ep.Title, Podcast: ep.PodcastTitle, Artwork: ep.Artwork()})
	})

	if autoPlay {
		c.Play()
	}
}

// Play starts playback of the current episode, loading the first episode
// when nothing is selected yet. On success the periodic save ticker starts.
// An empty episode list is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	count := len(c.episodes)
	index := c.index
	c.mu.Unlock()

	if count == 0 {
		return
	}
	if index < 0 {
		c.LoadEpisode(0, true)
		return
	}
	if err := c.engine.Play(); err != nil {
		c.emitError("play", err)
		return
	}
	c.startSaveTicker()
}

// Pause pauses playback and saves the resume position immediately.
func (c *Controller) Pause() {
	c.engine.Pause()
	c.stopSaveTicker()
	c.savePosition()
}

// TogglePlayPause pauses when playing, plays otherwise.
func (c *Controller) TogglePlayPause() {
	if c.engine.IsPlaying() {
		c.Pause()
	} else {
		c.Play()
	}
}

// Next moves the selection forward. Playback continues into the new episode
// if something was playing.
func (c *Controller) Next() { c.step(1) }

// Previous moves the selection backward.
func (c *Controller) Previous() { c.step(-1) }

func (c *Controller) step(delta int) {
	c.mu.Lock()
	i := c.index + delta
	count := len(c.episodes)
	c.mu.Unlock()

	if i < 0 || i >= count {
		return
	}
	c.LoadEpisode(i, c.engine.IsPlaying())
}

// SkipForward skips ahead by the engine's configured step.
func (c *Controller) SkipForward() { c.engine.SkipForward() }

// SkipBackward skips back by the engine's configured step.
func (c *Controller) SkipBackward() { c.engine.SkipBackward() }

// Seek moves to an absolute position in the current episode.
func (c *Controller) Seek(position time.Duration) { c.engine.Seek(position) }

// SeekPercent moves to a percentage [0,100] of the current episode.
func (c *Controller) SeekPercent(pct float64) { c.engine.SeekPercent(pct) }

// SetVolume applies the level to the engine and persists the player state.
func (c *Controller) SetVolume(level float64) {
	c.engine.SetVolume(level)

	c.mu.Lock()
	index := c.index
	c.mu.Unlock()
	c.states.SaveState(domain.PlayerState{CurrentEpisodeIndex: index, Volume: c.engine.Volume()})
}

// SetSpeed applies the playback-rate multiplier to the engine and persists
// it. The value is stored as given; validation happens on read.
func (c *Controller) SetSpeed(speed float64) {
	c.engine.SetRate(speed)
	c.states.SaveSpeed(speed)
}

// Speed returns the engine's current playback rate.
func (c *Controller) Speed() float64 { return c.engine.Rate() }

// Volume returns the engine's current volume level.
func (c *Controller) Volume() float64 { return c.engine.Volume() }

// Position returns the engine's current playback position.
func (c *Controller) Position() time.Duration { return c.engine.Position() }

// Duration returns the engine's current source duration.
func (c *Controller) Duration() time.Duration { return c.engine.Duration() }

// IsPlaying reports whether the engine is currently playing.
func (c *Controller) IsPlaying() bool { return c.engine.IsPlaying() }

// Episodes returns the current episode list.
func (c *Controller) Episodes() []domain.Episode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.episodes
}

// Current returns the selected index and episode; ok is false when nothing
// is selected.
func (c *Controller) Current() (int, domain.Episode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < 0 || c.index >= len(c.episodes) {
		return -1, domain.Episode{}, false
	}
	return c.index, c.episodes[c.index], true
}

// Subscribe registers a new observer for controller events.
func (c *Controller) Subscribe() *Subscription {
	return c.emitter.subscribe()
}

// Close saves the current position one last time, stops the event loop and
// closes all subscriptions. It does not close the engine. Safe to call more
// than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.stopSaveTicker()
		c.savePosition()
		close(c.done)
		c.wg.Wait()
		c.emitter.closeAll()
	})
}

// loop consumes engine events until Close. Ended clears the finished
// episode's resume position; Paused forces an immediate save. Engine error
// events are not forwarded: every engine failure the controller triggers is
// also returned to it, and the controller emits exactly once from the call
// site.
func (c *Controller) loop(sub *engine.Subscription) {
	defer c.wg.Done()
	defer sub.Close()
	for {
		select {
		case <-c.done:
			return
		case <-sub.Done:
			return
		case <-sub.Ended:
			c.handleEnded()
		case ev := <-sub.Paused:
			c.handlePaused(ev)
		}
	}
}

func (c *Controller) handleEnded() {
	c.stopSaveTicker()

	c.mu.Lock()
	var id string
	if c.index >= 0 && c.index < len(c.episodes) {
		id = c.episodes[c.index].ID
	}
	c.mu.Unlock()

	if id == "" {
		return
	}
	c.positions.Remove(id)
	c.logger.Info("episode finished", "id", id)
}

func (c *Controller) handlePaused(ev engine.PausedEvent) {
	c.mu.Lock()
	var id string
	var duration time.Duration
	if c.index >= 0 && c.index < len(c.episodes) {
		id = c.episodes[c.index].ID
		duration = c.episodes[c.index].Duration
	}
	c.mu.Unlock()

	if id == "" {
		return
	}
	c.positions.Save(id, ev.Position, duration)
}

// savePosition persists the current episode's position. No-op without a
// selection or a loaded source; eligibility is the position store's call.
func (c *Controller) savePosition() {
	c.mu.Lock()
	var id string
	var duration time.Duration
	if c.index >= 0 && c.index < len(c.episodes) {
		id = c.episodes[c.index].ID
		duration = c.episodes[c.index].Duration
	}
	c.mu.Unlock()

	if id == "" || !c.engine.HasSource() {
		return
	}
	c.positions.Save(id, c.engine.Position(), duration)
}

// startSaveTicker starts the periodic save goroutine, stopping any previous
// one first so at most one is ever live.
func (c *Controller) startSaveTicker() {
	c.mu.Lock()
	c.stopTickerLocked()
	stop := make(chan struct{})
	c.tickerStop = stop
	interval := c.saveInterval
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.savePosition()
			case <-stop:
				return
			case <-c.done:
				return
			}
		}
	}()
}

func (c *Controller) stopSaveTicker() {
	c.mu.Lock()
	c.stopTickerLocked()
	c.mu.Unlock()
}

func (c *Controller) stopTickerLocked() {
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}

func (c *Controller) emitError(op string, err error) {
	c.logger.Error("controller error", "op", op, "error", err)
	c.emitter.each(func(s *Subscription) { s.sendError(ErrorEvent{Op: op, Err: err}) })
}
