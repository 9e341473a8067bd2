package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/classify"
)

var (
	// Adaptive colors for dark/light terminals
	colorPrimary   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorSecondary = lipgloss.AdaptiveColor{Light: "#3D3D3D", Dark: "#ABABAB"}
	colorDim       = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent    = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	colorGreen     = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorAmber     = lipgloss.AdaptiveColor{Light: "#B7791F", Dark: "#F6AD55"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	bodyStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorAmber)

	badgeBase = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true)
)

func categoryColor(c classify.Category) lipgloss.TerminalColor {
	switch c {
	case classify.Politics:
		return colorAccent
	case classify.Entertainment:
		return colorPrimary
	case classify.Health:
		return colorGreen
	case classify.Local:
		return colorAmber
	default:
		return colorDim
	}
}

func badge(c classify.Category) string {
	return badgeBase.Background(categoryColor(c)).Render(string(c))
}
