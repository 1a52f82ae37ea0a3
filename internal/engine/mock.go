package engine

import (
	"math"
	"sync"
	"time"

	"github.com/castkit/castkit/internal/domain"
)

// LoadCall records one Load invocation on the mock.
type LoadCall struct {
	URL   string
	Start time.Duration
}

// Mock is a test double for Engine. Position and duration are set by the
// test; Simulate* helpers emit events exactly as the real engine would.
type Mock struct {
	mu       sync.Mutex
	emitter  emitter
	position time.Duration
	duration time.Duration
	level    float64
	rate     float64
	playing  bool
	hasSrc   bool

	loadErr error
	playErr error

	loadCalls []LoadCall
	seekCalls []time.Duration
}

// NewMock creates a mock engine with volume 1 and rate 1.
func NewMock() *Mock {
	return &Mock{level: 1, rate: 1}
}

func (m *Mock) Load(url string, start time.Duration) error {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, LoadCall{URL: url, Start: start})
	if m.loadErr != nil {
		err := m.loadErr
		m.mu.Unlock()
		m.emitter.each(func(s *Subscription) { s.sendError(ErrorEvent{Op: "load", Err: err}) })
		return err
	}
	m.hasSrc = true
	m.playing = false
	m.position = start
	duration := m.duration
	m.mu.Unlock()

	m.emitter.each(func(s *Subscription) { s.sendLoaded(LoadedEvent{Duration: duration}) })
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	err := m.playErr
	if err == nil && !m.hasSrc {
		err = domain.ErrNoSource
	}
	if err != nil {
		m.mu.Unlock()
		m.emitter.each(func(s *Subscription) { s.sendError(ErrorEvent{Op: "play", Err: err}) })
		return err
	}
	m.playing = true
	m.mu.Unlock()

	m.emitter.each(func(s *Subscription) { s.sendStarted() })
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = false
	position := m.position
	m.mu.Unlock()

	m.emitter.each(func(s *Subscription) { s.sendPaused(PausedEvent{Position: position}) })
}

func (m *Mock) Stop() {
	m.mu.Lock()
	m.playing = false
	m.position = 0
	m.mu.Unlock()

	m.emitter.each(func(s *Subscription) { s.sendStopped() })
}

func (m *Mock) SkipForward()  { m.Seek(m.Position() + DefaultSkipStep) }
func (m *Mock) SkipBackward() { m.Seek(m.Position() - DefaultSkipStep) }

func (m *Mock) Seek(position time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasSrc {
		return
	}
	position = max(position, 0)
	if m.duration > 0 {
		position = min(position, m.duration)
	}
	m.seekCalls = append(m.seekCalls, position)
	m.position = position
}

func (m *Mock) SeekPercent(pct float64) {
	m.mu.Lock()
	duration := m.duration
	m.mu.Unlock()
	if duration <= 0 {
		return
	}
	pct = math.Min(math.Max(pct, 0), 100)
	m.Seek(time.Duration(float64(duration) * pct / 100))
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = math.Min(math.Max(level, 0), 1)
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *Mock) SetRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

func (m *Mock) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) HasSource() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasSrc
}

func (m *Mock) Subscribe() *Subscription {
	return m.emitter.subscribe()
}

func (m *Mock) Close() error {
	m.emitter.closeAll()
	return nil
}

// Test helpers

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
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

func (m *Mock) LoadCalls() []LoadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LoadCall(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// SimulateEnded emits the end-of-playback event as the real engine does
// when the source drains.
func (m *Mock) SimulateEnded() {
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	m.emitter.each(func(s *Subscription) { s.sendEnded() })
}

// SimulateProgress emits one timing event with the current position.
func (m *Mock) SimulateProgress() {
	m.mu.Lock()
	position, duration := m.position, m.duration
	m.mu.Unlock()
	percent := 0.0
	if duration > 0 {
		percent = float64(position) / float64(duration) * 100
	}
	m.emitter.each(func(s *Subscription) {
		s.sendProgress(ProgressEvent{Position: position, Duration: duration, Percent: percent})
	})
}

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)
