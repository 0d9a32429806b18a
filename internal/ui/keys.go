package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Down   key.Binding
	Up     key.Binding
	Top    key.Binding
	Bottom key.Binding
	Retry  key.Binding
	Toggle key.Binding
	Clear  key.Binding
	Trim   key.Binding
	Debug  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Retry:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Toggle: key.NewBinding(key.WithKeys("t", "tab"), key.WithHelp("t", "top/new")),
	Clear:  key.NewBinding(key.WithKeys("x", "esc"), key.WithHelp("x", "dismiss error")),
	Trim:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "free memory")),
	Debug:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "event log")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Retry, k.Toggle, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Top, k.Bottom},
		{k.Retry, k.Toggle, k.Clear, k.Trim},
		{k.Debug, k.Help, k.Quit},
	}
}
