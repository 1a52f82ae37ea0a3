package domain

import "errors"

// Sentinel errors for playback operations
var (
	// ErrNoSource indicates a transport operation was attempted with no audio source loaded
	ErrNoSource = errors.New("no audio source loaded")

	// ErrEngineClosed indicates the playback engine has been shut down
	ErrEngineClosed = errors.New("playback engine is closed")
)
