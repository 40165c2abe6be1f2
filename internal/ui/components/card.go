package components

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/ui/theme"
)

// ContentWidth returns the inner width used for centred cards so they
// align across views.
func ContentWidth(frameWidth int) int {
	w := frameWidth - 6
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// Card wraps content in a rounded-border card at the given content width.
func Card(content string, cw int) string {
	return theme.Card.
		Width(cw - 2).
		Render(content)
}

// Section renders a bold heading above body.
func Section(heading, body string) string {
	return theme.Label.Render(heading) + "\n" + body
}

// Centered places content in the middle of a width x height box.
func Centered(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
