package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders report markdown and rebuilds the glamour renderer when the wrap
// width or theme changes.
type markdownRenderer struct {
	width    int
	style    string
	renderer *glamour.TermRenderer
}

// glamourStyle maps the theme preference onto a glamour standard style.
func glamourStyle(theme string) string {
	if theme == "light" {
		return "light"
	}
	return "dark"
}

// render converts markdown input into ANSI-styled terminal text.
func (r *markdownRenderer) render(markdown string, width int, theme string) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	style := glamourStyle(theme)
	if r.renderer == nil || r.width != wrapWidth || r.style != style {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
		r.style = style
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}
