package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the widget host.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Toggle   key.Binding
	Next     key.Binding
	Previous key.Binding
	SkipFwd  key.Binding
	SkipBack key.Binding
	VolUp    key.Binding
	VolDown  key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Filter   key.Binding
	Escape   key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		Previous: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous"),
		),
		SkipFwd: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "skip fwd"),
		),
		SkipBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "skip back"),
		),
		VolUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "vol up"),
		),
		VolDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "vol down"),
		),
		Faster: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "slower"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
