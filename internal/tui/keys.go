package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application
type KeyMap struct {
	// Navigation
	NextTab key.Binding
	PrevTab key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	Enter   key.Binding
	Back    key.Binding

	// Actions
	Quit       key.Binding
	Refresh    key.Binding
	ToggleSave key.Binding
	Retry      key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "previous tab"),
		),
		Tab1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "courses")),
		Tab2: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "jobs")),
		Tab3: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "saved")),
		Tab4: key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "progress")),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open/play"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),

		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ToggleSave: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save/unsave job"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "resend progress"),
		),
	}
}

// ShortHelp renders the footer hint for the list tabs.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab1, k.NextTab, k.Enter, k.Refresh, k.ToggleSave, k.Quit}
}

// CourseHelp renders the footer hint inside a course.
func (k KeyMap) CourseHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Retry, k.Back, k.Quit}
}
