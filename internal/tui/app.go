// Package tui is the reference terminal host for the playback widget: an
// episode list with fuzzy filtering and a transport bar driven by the
// controller's event subscriptions.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/castkit/castkit/internal/controller"
	"github.com/castkit/castkit/internal/domain"
	"github.com/castkit/castkit/internal/engine"
)

const (
	speedStep = 0.25
	speedMin  = 0.5
	speedMax  = 3.0
	volStep   = 0.1
)

// Model is the Bubble Tea model for the widget host.
type Model struct {
	ctrl *controller.Controller
	keys KeyMap

	ctrlSub *controller.Subscription
	engSub  *engine.Subscription

	episodes []domain.Episode
	visible  []int // indices into episodes after filtering
	cursor   int   // offset into visible
	current  int   // index of the loaded episode, -1 none

	playing    bool
	position   string
	duration   string
	percent    float64
	nowPlaying controller.NowPlayingEvent

	filterInput textinput.Model
	filtering   bool

	width   int
	height  int
	loading bool
	errLine string
}

// NewModel builds the TUI model. The engine subscription drives the
// transport bar; the controller subscription drives the list and metadata.
func NewModel(ctrl *controller.Controller, eng engine.Engine) Model {
	filter := textinput.New()
	filter.Placeholder = "filter episodes"
	filter.Prompt = "/ "
	filter.CharLimit = 80

	return Model{
		ctrl:        ctrl,
		keys:        DefaultKeyMap(),
		ctrlSub:     ctrl.Subscribe(),
		engSub:      eng.Subscribe(),
		current:     -1,
		filterInput: filter,
		loading:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchEpisodes(m.ctrl),
		waitControllerEvent(m.ctrlSub),
		waitEngineEvent(m.engSub),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateBrowsing(msg)

	case episodesLoadedMsg:
		m.episodes = msg.Episodes
		m.applyFilter()
		return m, waitControllerEvent(m.ctrlSub)

	case episodeChangedMsg:
		m.current = msg.Index
		m.moveCursorTo(msg.Index)
		return m, waitControllerEvent(m.ctrlSub)

	case nowPlayingMsg:
		m.nowPlaying = controller.NowPlayingEvent(msg)
		m.errLine = ""
		return m, waitControllerEvent(m.ctrlSub)

	case errorMsg:
		m.errLine = msg.op + ": " + msg.err.Error()
		// Both subscriptions can carry errors; rearm both.
		return m, tea.Batch(waitControllerEvent(m.ctrlSub), waitEngineEvent(m.engSub))

	case fetchDoneMsg:
		m.loading = false
		return m, nil

	case playbackStartedMsg:
		m.playing = true
		return m, waitEngineEvent(m.engSub)

	case playbackPausedMsg, playbackStoppedMsg:
		m.playing = false
		return m, waitEngineEvent(m.engSub)

	case playbackEndedMsg:
		m.playing = false
		m.position = ""
		m.percent = 0
		return m, waitEngineEvent(m.engSub)

	case progressMsg:
		m.position = formatDuration(msg.position)
		if msg.duration > 0 {
			m.duration = formatDuration(msg.duration)
		}
		m.percent = msg.percent
		return m, waitEngineEvent(m.engSub)

	case loadedMsg:
		if msg.duration > 0 {
			m.duration = formatDuration(msg.duration)
		} else {
			m.duration = ""
		}
		return m, waitEngineEvent(m.engSub)
	}

	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.cursor < len(m.visible) {
			m.ctrl.LoadEpisode(m.visible[m.cursor], true)
		}

	case key.Matches(msg, m.keys.Toggle):
		m.ctrl.TogglePlayPause()

	case key.Matches(msg, m.keys.Next):
		m.ctrl.Next()

	case key.Matches(msg, m.keys.Previous):
		m.ctrl.Previous()

	case key.Matches(msg, m.keys.SkipFwd):
		m.ctrl.SkipForward()

	case key.Matches(msg, m.keys.SkipBack):
		m.ctrl.SkipBackward()

	case key.Matches(msg, m.keys.VolUp):
		m.ctrl.SetVolume(m.ctrl.Volume() + volStep)

	case key.Matches(msg, m.keys.VolDown):
		m.ctrl.SetVolume(m.ctrl.Volume() - volStep)

	case key.Matches(msg, m.keys.Faster):
		m.ctrl.SetSpeed(clampSpeed(m.ctrl.Speed() + speedStep))

	case key.Matches(msg, m.keys.Slower):
		m.ctrl.SetSpeed(clampSpeed(m.ctrl.Speed() - speedStep))

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Escape):
		m.filterInput.SetValue("")
		m.applyFilter()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, fetchEpisodes(m.ctrl)
	}

	return m, nil
}

func (m Model) updateFiltering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// applyFilter recomputes the visible index list and keeps the cursor valid.
func (m *Model) applyFilter() {
	m.visible = visibleIndices(m.filterInput.Value(), m.episodes)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// moveCursorTo points the cursor at the given episode index if it is
// visible under the current filter.
func (m *Model) moveCursorTo(index int) {
	for i, v := range m.visible {
		if v == index {
			m.cursor = i
			return
		}
	}
}

func clampSpeed(speed float64) float64 {
	if speed < speedMin {
		return speedMin
	}
	if speed > speedMax {
		return speedMax
	}
	return speed
}
