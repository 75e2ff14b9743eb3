package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Gradient renders text bold, blending from one hex color to another across
// its grapheme clusters. Non-hex colors render without the blend.
func Gradient(text string, from, to lipgloss.Color) string {
	c1, err1 := colorful.Hex(string(from))
	c2, err2 := colorful.Hex(string(to))

	var clusters []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	if len(clusters) < 2 || err1 != nil || err2 != nil {
		return lipgloss.NewStyle().Bold(true).Foreground(from).Render(text)
	}

	var b strings.Builder
	last := float64(len(clusters) - 1)
	for i, c := range clusters {
		hex := c1.BlendHcl(c2, float64(i)/last).Clamped().Hex()
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(hex)).Render(c))
	}
	return b.String()
}
