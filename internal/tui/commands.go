package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/castkit/castkit/internal/controller"
	"github.com/castkit/castkit/internal/engine"
)

// fetchEpisodes kicks off a provider fetch. Episode data flows back through
// the controller subscription; this command only reports completion.
func fetchEpisodes(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.LoadEpisodes(context.Background())
		return fetchDoneMsg{err: err}
	}
}

// waitControllerEvent blocks on the controller subscription and converts the
// next event to a message. Re-issued after every delivery.
func waitControllerEvent(sub *controller.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-sub.Episodes:
			return episodesLoadedMsg(ev)
		case ev := <-sub.Episode:
			return episodeChangedMsg(ev)
		case ev := <-sub.NowPlaying:
			return nowPlayingMsg(ev)
		case ev := <-sub.Error:
			return errorMsg{op: ev.Op, err: ev.Err}
		case <-sub.Done:
			return nil
		}
	}
}

// waitEngineEvent blocks on the engine subscription and converts the next
// event to a message. Re-issued after every delivery.
func waitEngineEvent(sub *engine.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-sub.Started:
			return playbackStartedMsg{}
		case <-sub.Paused:
			return playbackPausedMsg{}
		case <-sub.Stopped:
			return playbackStoppedMsg{}
		case <-sub.Ended:
			return playbackEndedMsg{}
		case ev := <-sub.Progress:
			return progressMsg{position: ev.Position, duration: ev.Duration, percent: ev.Percent}
		case ev := <-sub.Loaded:
			return loadedMsg{duration: ev.Duration}
		case ev := <-sub.Error:
			return errorMsg{op: ev.Op, err: ev.Err}
		case <-sub.Done:
			return nil
		}
	}
}
