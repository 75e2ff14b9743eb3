// Package styles holds the terminal palette shared by the status views.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette plus styles built from it.
type Theme struct {
	Accent    lipgloss.Color // now playing, active state
	Scrobbled lipgloss.Color

	Fg       lipgloss.Color
	FgMuted  lipgloss.Color
	FgSubtle lipgloss.Color

	Border lipgloss.Color

	Error   lipgloss.Color
	Warning lipgloss.Color

	styles *Styles
}

// Styles are lipgloss styles derived from a Theme.
type Styles struct {
	Base      lipgloss.Style
	Muted     lipgloss.Style
	Subtle    lipgloss.Style
	Title     lipgloss.Style
	Playing   lipgloss.Style
	Scrobbled lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Panel     lipgloss.Style
}

var defaultTheme = Theme{
	Accent:    lipgloss.Color("#a78bfa"),
	Scrobbled: lipgloss.Color("#d51007"),

	Fg:       lipgloss.Color("#c0c0c0"),
	FgMuted:  lipgloss.Color("#808080"),
	FgSubtle: lipgloss.Color("#585858"),

	Border: lipgloss.Color("240"),

	Error:   lipgloss.Color("#ff5555"),
	Warning: lipgloss.Color("#f1a208"),
}

// T returns the default theme.
func T() *Theme {
	return &defaultTheme
}

// S returns the styles for t, building them on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		base := lipgloss.NewStyle().Foreground(t.Fg)
		t.styles = &Styles{
			Base:      base,
			Muted:     lipgloss.NewStyle().Foreground(t.FgMuted),
			Subtle:    lipgloss.NewStyle().Foreground(t.FgSubtle),
			Title:     base.Bold(true),
			Playing:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
			Scrobbled: lipgloss.NewStyle().Foreground(t.Scrobbled),
			Error:     lipgloss.NewStyle().Foreground(t.Error),
			Warning:   lipgloss.NewStyle().Foreground(t.Warning),
			Panel: lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(t.Border).
				Padding(0, 1),
		}
	}
	return t.styles
}
