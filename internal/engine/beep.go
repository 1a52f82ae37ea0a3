package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/castkit/castkit/internal/domain"
)

// DefaultSkipStep is the skip distance used when none is configured.
const DefaultSkipStep = 30 * time.Second

const progressInterval = 500 * time.Millisecond

// The speaker is a process-wide resource; it is initialized once with the
// sample rate of the first decoded source and later sources are resampled
// to match.
var (
	speakerOnce       sync.Once
	speakerInitErr    error
	speakerSampleRate beep.SampleRate
)

// initSpeaker initializes the process-wide speaker on first use. Subsequent
// calls return the first call's result regardless of format.
func initSpeaker(format beep.Format) error {
	speakerOnce.Do(func() {
		speakerSampleRate = format.SampleRate
		speakerInitErr = speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10))
	})
	return speakerInitErr
}

// Beep is the real playback engine, wrapping the beep speaker. Remote
// http(s) sources are downloaded to a temporary file before decoding, so
// Load blocks until the download completes; local paths are opened
// directly. Only one Beep engine should drive the speaker per process.
type Beep struct {
	mu       sync.Mutex
	logger   *slog.Logger
	skipStep time.Duration
	emitter  emitter

	httpClient *http.Client

	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volume    *effects.Volume
	baseRatio float64

	src     string
	tmpPath string

	level float64 // [0,1]
	rate  float64 // playback multiplier, survives source reloads

	playing      atomic.Bool
	closed       bool
	progressStop chan struct{}
}

// NewBeep creates a beep-backed engine. skipStep <= 0 selects
// DefaultSkipStep.
func NewBeep(skipStep time.Duration, logger *slog.Logger) *Beep {
	if logger == nil {
		logger = slog.Default()
	}
	if skipStep <= 0 {
		skipStep = DefaultSkipStep
	}
	return &Beep{
		logger:     logger,
		skipStep:   skipStep,
		httpClient: &http.Client{},
		level:      1,
		rate:       1,
	}
}

// Load replaces the current source with src, paused, seeking to start when
// positive. The configured playback rate is re-applied to the new source.
func (e *Beep) Load(src string, start time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrEngineClosed
	}
	e.unloadLocked()

	f, tmpPath, err := e.open(src)
	if err != nil {
		e.logger.Error("failed to open audio source", "src", src, "error", err)
		e.emitError("load", err)
		return err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
		err = fmt.Errorf("failed to decode audio: %w", err)
		e.logger.Error("decode failed", "src", src, "error", err)
		e.emitError("load", err)
		return err
	}

	if err := initSpeaker(format); err != nil {
		streamer.Close()
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
		err = fmt.Errorf("failed to init speaker: %w", err)
		e.emitError("load", err)
		return err
	}

	e.streamer = streamer
	e.format = format
	e.src = src
	e.tmpPath = tmpPath

	e.ctrl = &beep.Ctrl{Streamer: streamer, Paused: true}
	e.baseRatio = float64(format.SampleRate) / float64(speakerSampleRate)
	e.resampler = beep.ResampleRatio(4, e.baseRatio*e.rate, e.ctrl)
	e.volume = &effects.Volume{
		Streamer: e.resampler,
		Base:     2,
		Volume:   levelToVolume(e.level),
		Silent:   e.level <= 0,
	}

	if start > 0 {
		if n := format.SampleRate.N(start); n < streamer.Len() {
			if err := streamer.Seek(n); err != nil {
				e.logger.Warn("failed to seek to resume offset", "src", src, "offset", start, "error", err)
			}
		}
	}

	speaker.Play(beep.Seq(e.volume, beep.Callback(e.handleEnded)))

	duration := format.SampleRate.D(streamer.Len())
	e.logger.Info("source loaded", "src", src, "duration", duration, "start", start)
	e.emitter.each(func(s *Subscription) { s.sendLoaded(LoadedEvent{Duration: duration}) })

	stop := make(chan struct{})
	e.progressStop = stop
	go e.progressLoop(stop)

	return nil
}

// open resolves src to a readable file, downloading http(s) URLs to a
// temporary file first (mp3 seeking needs a seekable reader).
func (e *Beep) open(src string) (*os.File, string, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		f, err := os.Open(src)
		return f, "", err
	}

	resp, err := e.httpClient.Get(src)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("failed to fetch audio: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "castkit-*.mp3")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", fmt.Errorf("failed to download audio: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, "", err
	}
	return tmp, tmp.Name(), nil
}

// Play unpauses the current source. A failure is emitted as an error event
// and also returned to the caller.
func (e *Beep) Play() error {
	e.mu.Lock()
	ctrl := e.ctrl
	closed := e.closed
	e.mu.Unlock()

	var err error
	switch {
	case closed:
		err = domain.ErrEngineClosed
	case ctrl == nil:
		err = domain.ErrNoSource
	}
	if err != nil {
		e.emitError("play", err)
		return err
	}

	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()
	e.playing.Store(true)

	e.emitter.each(func(s *Subscription) { s.sendStarted() })
	return nil
}

// Pause pauses playback, carrying the current offset on the event.
func (e *Beep) Pause() {
	e.mu.Lock()
	ctrl := e.ctrl
	e.mu.Unlock()
	if ctrl == nil || !e.playing.Load() {
		return
	}

	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	e.playing.Store(false)

	e.emitter.each(func(s *Subscription) { s.sendPaused(PausedEvent{Position: e.Position()}) })
}

// Stop pauses and resets the position to zero.
func (e *Beep) Stop() {
	e.mu.Lock()
	ctrl := e.ctrl
	e.mu.Unlock()
	if ctrl == nil {
		return
	}

	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
	e.playing.Store(false)
	e.seekTo(0)

	e.emitter.each(func(s *Subscription) { s.sendStopped() })
}

func (e *Beep) SkipForward()  { e.skip(e.skipStep) }
func (e *Beep) SkipBackward() { e.skip(-e.skipStep) }

func (e *Beep) skip(delta time.Duration) {
	if !e.HasSource() {
		return
	}
	e.seekTo(e.Position() + delta)
}

// Seek moves to an absolute position, clamped to [0, duration].
func (e *Beep) Seek(position time.Duration) {
	e.seekTo(position)
}

// SeekPercent seeks to pct percent of the total duration. No-op when the
// duration is unknown.
func (e *Beep) SeekPercent(pct float64) {
	duration := e.Duration()
	if duration <= 0 {
		return
	}
	pct = math.Min(math.Max(pct, 0), 100)
	e.seekTo(time.Duration(float64(duration) * pct / 100))
}

func (e *Beep) seekTo(target time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return
	}

	n := e.format.SampleRate.N(target)
	n = max(n, 0)
	n = min(n, e.streamer.Len())

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		e.logger.Warn("seek failed", "target", target, "error", err)
	}
}

// SetVolume sets the volume level, clamped to [0,1].
func (e *Beep) SetVolume(level float64) {
	level = math.Min(math.Max(level, 0), 1)

	e.mu.Lock()
	e.level = level
	volume := e.volume
	e.mu.Unlock()

	if volume != nil {
		speaker.Lock()
		volume.Volume = levelToVolume(level)
		volume.Silent = level <= 0
		speaker.Unlock()
	}
}

func (e *Beep) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// SetRate sets the playback multiplier. Not clamped; the value is
// re-applied after each new source load.
func (e *Beep) SetRate(rate float64) {
	e.mu.Lock()
	e.rate = rate
	resampler := e.resampler
	ratio := e.baseRatio * rate
	e.mu.Unlock()

	if resampler != nil {
		speaker.Lock()
		resampler.SetRatio(ratio)
		speaker.Unlock()
	}
}

func (e *Beep) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *Beep) Position() time.Duration {
	e.mu.Lock()
	streamer, format := e.streamer, e.format
	e.mu.Unlock()
	if streamer == nil {
		return 0
	}
	// Read without the speaker lock; may be slightly stale but cannot
	// deadlock against the playback goroutine.
	return format.SampleRate.D(streamer.Position())
}

func (e *Beep) Duration() time.Duration {
	e.mu.Lock()
	streamer, format := e.streamer, e.format
	e.mu.Unlock()
	if streamer == nil {
		return 0
	}
	return format.SampleRate.D(streamer.Len())
}

func (e *Beep) IsPlaying() bool {
	return e.playing.Load()
}

func (e *Beep) HasSource() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamer != nil
}

func (e *Beep) Subscribe() *Subscription {
	return e.emitter.subscribe()
}

// Close releases the current source and detaches every subscriber. Safe to
// call once; subsequent transport calls return ErrEngineClosed.
func (e *Beep) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.unloadLocked()
	e.mu.Unlock()

	e.emitter.closeAll()
	return nil
}

// handleEnded runs on the playback goroutine when the source drains. It
// must not touch the speaker lock or e.mu: the speaker holds its lock while
// invoking the callback.
func (e *Beep) handleEnded() {
	e.playing.Store(false)
	e.emitter.each(func(s *Subscription) { s.sendEnded() })
}

// progressLoop emits timing events while the source is playing.
func (e *Beep) progressLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !e.playing.Load() {
				continue
			}
			position, duration := e.Position(), e.Duration()
			percent := 0.0
			if duration > 0 {
				percent = float64(position) / float64(duration) * 100
			}
			e.emitter.each(func(s *Subscription) {
				s.sendProgress(ProgressEvent{Position: position, Duration: duration, Percent: percent})
			})
		}
	}
}

// unloadLocked tears down the current source. Caller holds e.mu.
func (e *Beep) unloadLocked() {
	if e.progressStop != nil {
		close(e.progressStop)
		e.progressStop = nil
	}
	if e.streamer != nil {
		speaker.Clear()
		e.streamer.Close()
		e.streamer = nil
	}
	if e.tmpPath != "" {
		os.Remove(e.tmpPath)
		e.tmpPath = ""
	}
	e.ctrl = nil
	e.resampler = nil
	e.volume = nil
	e.src = ""
	e.playing.Store(false)
}

func (e *Beep) emitError(op string, err error) {
	e.emitter.each(func(s *Subscription) { s.sendError(ErrorEvent{Op: op, Err: err}) })
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic Volume
// value (base 2): 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// Verify Beep implements Engine at compile time.
var _ Engine = (*Beep)(nil)
