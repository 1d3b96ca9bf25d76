package styles

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Heading renders text bold with the theme's primary to secondary gradient.
func (t *Theme) Heading(text string) string {
	return BoldGradient(text, t.Primary, t.Secondary)
}

// BoldGradient renders bold text with a horizontal color gradient, one color
// per grapheme cluster.
func BoldGradient(text string, from, to lipgloss.Color) string {
	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	switch len(clusters) {
	case 0:
		return ""
	case 1:
		return lipgloss.NewStyle().Bold(true).Foreground(from).Render(text)
	}

	colors := blend(len(clusters), from, to)

	var b strings.Builder
	for i, cluster := range clusters {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colors[i].Hex()))
		b.WriteString(style.Render(cluster))
	}
	return b.String()
}

// blend interpolates in HCL space so the steps look even.
func blend(size int, from, to lipgloss.Color) []colorful.Color {
	c1, _ := colorful.MakeColor(toColor(from))
	c2, _ := colorful.MakeColor(toColor(to))

	colors := make([]colorful.Color, size)
	for i := range size {
		colors[i] = c1.BlendHcl(c2, float64(i)/float64(size-1)).Clamped()
	}
	return colors
}

// toColor parses "#rrggbb"; ANSI palette colors fall back to gray.
func toColor(c lipgloss.Color) color.Color {
	if hex := string(c); len(hex) == 7 && hex[0] == '#' {
		if col, err := colorful.Hex(hex); err == nil {
			return col
		}
	}
	return color.RGBA{R: 128, G: 128, B: 128, A: 255}
}
