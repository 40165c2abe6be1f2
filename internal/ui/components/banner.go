package components

import (
	"github.com/abhisek/edubot/internal/ui/theme"
)

// Banner renders a one-line notice. Errors use the error palette.
func Banner(text string, isError bool, width int) string {
	style := theme.BannerInfo
	icon := "ℹ "
	if isError {
		style = theme.BannerError
		icon = "✗ "
	}
	return style.Width(width).Render(icon + text)
}
