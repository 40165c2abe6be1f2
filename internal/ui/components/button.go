package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/ui/theme"
)

// Button is a render-only labelled button.
type Button struct {
	Label  string
	Active bool
}

// View renders the button.
func (b Button) View() string {
	if b.Active {
		return theme.ButtonActive.Render("▸ " + b.Label)
	}
	return theme.ButtonInactive.Render(b.Label)
}

// ConfirmBar renders a yes/no prompt, used before destructive actions.
func ConfirmBar(prompt string, yes bool) string {
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		Button{Label: "Yes", Active: yes}.View(),
		"  ",
		Button{Label: "No", Active: !yes}.View(),
	)
	return theme.Body.Render(prompt) + "\n" + buttons
}
