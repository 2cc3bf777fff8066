package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all key bindings for the TUI.
type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Advise  key.Binding
	Users   key.Binding
	Samples key.Binding
	Up      key.Binding
	Down    key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "poll now"),
	),
	Advise: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "run diagnostics"),
	),
	Users: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "users"),
	),
	Samples: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "page cache & storage"),
	),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete user"),
	),
	Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

// helpText is shown in the footer when help is toggled on.
const helpText = "q: quit  r: poll now  d: diagnostics + advice  u: users  p: page cache & storage  ↑↓: select  x: delete user  ?: toggle help"
