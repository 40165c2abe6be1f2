package login

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/ui/theme"
)

const bannerArt = `
 ███████╗██████╗ ██╗   ██╗██████╗  ██████╗ ████████╗
 ██╔════╝██╔══██╗██║   ██║██╔══██╗██╔═══██╗╚══██╔══╝
 █████╗  ██║  ██║██║   ██║██████╔╝██║   ██║   ██║
 ██╔══╝  ██║  ██║██║   ██║██╔══██╗██║   ██║   ██║
 ███████╗██████╔╝╚██████╔╝██████╔╝╚██████╔╝   ██║
 ╚══════╝╚═════╝  ╚═════╝ ╚═════╝  ╚═════╝    ╚═╝`

const bannerCompact = "E D U B O T"

// bannerMinWidth is the narrowest frame the full art fits in.
const bannerMinWidth = 53

// renderBanner returns the EduBot banner in the primary color, or a
// compact fallback on narrow terminals.
func renderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < bannerMinWidth {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
