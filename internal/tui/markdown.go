package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// MarkdownRenderer wraps glamour for the completion text and markdown file
// previews. Rendering falls back to the raw text on any error.
type MarkdownRenderer struct {
	width    int
	style    string
	renderer *glamour.TermRenderer
}

func NewMarkdownRenderer(theme ThemeName) *MarkdownRenderer {
	style := styles.DarkStyle
	if theme == ThemeLight {
		style = styles.LightStyle
	}
	return &MarkdownRenderer{style: style}
}

func (m *MarkdownRenderer) Render(content string, width int) string {
	if width < 20 {
		width = 20
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
