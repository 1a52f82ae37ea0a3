// Package engine defines the playback engine contract consumed by the
// controller, a real implementation backed by beep, and a mock for tests.
package engine

import "time"

// Engine is the transport-control contract over a single audio source.
// Implementations must be safe for use from multiple goroutines.
//
// The orchestrator depends on exact semantics:
//   - Load replaces the current source, seeks to the start offset when it
//     is positive, and re-applies the playback rate to the new source.
//   - Play returns the start failure to the caller AND emits an Error
//     event to observers.
//   - Stop pauses and resets the position to zero.
//   - Skip and Seek are clamped to [0, duration] and are no-ops while no
//     source is loaded.
//   - SetVolume clamps to [0,1]; SetRate does not clamp.
type Engine interface {
	Load(url string, start time.Duration) error
	Play() error
	Pause()
	Stop()
	SkipForward()
	SkipBackward()
	Seek(position time.Duration)
	SeekPercent(pct float64)

	SetVolume(level float64)
	Volume() float64
	SetRate(rate float64)
	Rate() float64

	Position() time.Duration
	Duration() time.Duration
	IsPlaying() bool
	HasSource() bool

	Subscribe() *Subscription
	Close() error
}
