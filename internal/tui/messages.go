package tui

import (
	"time"

	"github.com/castkit/castkit/internal/controller"
)

// Controller events re-wrapped as Bubble Tea messages.
type (
	episodesLoadedMsg controller.EpisodesLoadedEvent
	episodeChangedMsg controller.EpisodeChangedEvent
	nowPlayingMsg     controller.NowPlayingEvent
	errorMsg          struct {
		op  string
		err error
	}
)

// Engine events re-wrapped as Bubble Tea messages.
type (
	playbackStartedMsg struct{}
	playbackPausedMsg  struct{}
	playbackStoppedMsg struct{}
	playbackEndedMsg   struct{}
	progressMsg        struct {
		position time.Duration
		duration time.Duration
		percent  float64
	}
	loadedMsg struct {
		duration time.Duration
	}
)

// fetchDoneMsg reports the result of the initial/refresh feed fetch. The
// episode list itself arrives via episodesLoadedMsg.
type fetchDoneMsg struct {
	err error
}
