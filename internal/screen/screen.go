package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/edubot/internal/ui/layout"
)

// Screen is one full-window view of the app: the login form or the
// classroom.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is implemented by screens whose footer hints depend on
// their state.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// BadgeProvider is implemented by screens that know who is signed in.
type BadgeProvider interface {
	Badge() layout.Badge
}
