package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Idle         key.Binding
	Show         key.Binding
	FirstPerform key.Binding
	ForceReps    key.Binding
	Reps         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Idle: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "idle / next gesture"),
		),
		Show: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "show technique"),
		),
		FirstPerform: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "first perform"),
		),
		ForceReps: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "repetitions (force)"),
		),
		Reps: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "repetitions"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Idle, k.Show, k.FirstPerform, k.Reps, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Idle, k.Show, k.FirstPerform},
		{k.Reps, k.ForceReps},
		{k.Help, k.Quit},
	}
}
