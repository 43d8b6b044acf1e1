package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

const disclaimerPrefix = "Disclaimer:"

type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(style string) *markdownRenderer {
	if strings.TrimSpace(style) == "" {
		style = "auto"
	}
	return &markdownRenderer{style: style}
}

// Resize rebuilds the glamour renderer for a new wrap width.
func (r *markdownRenderer) Resize(width int) {
	if width <= 0 || (width == r.width && r.renderer != nil) {
		return
	}
	r.width = width
	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		r.renderer = nil
		return
	}
	r.renderer = renderer
}

// Render splits off the disclaimer lines into a highlighted banner and passes
// the remaining markdown to glamour. Without a renderer the text is only
// wrapped.
func (r *markdownRenderer) Render(text string, width int) string {
	disclaimers, body := splitDisclaimer(text)
	var parts []string
	for _, line := range disclaimers {
		parts = append(parts, disclaimerStyle.Render(wordwrap.String(line, max(width-2, 20))))
	}
	if strings.TrimSpace(body) != "" {
		parts = append(parts, r.renderBody(body, width))
	}
	return strings.Join(parts, "\n")
}

func (r *markdownRenderer) renderBody(body string, width int) string {
	if r.renderer != nil {
		if out, err := r.renderer.Render(body); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return wordwrap.String(strings.TrimSpace(body), width)
}

func splitDisclaimer(text string) ([]string, string) {
	var disclaimers, rest []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), disclaimerPrefix) {
			disclaimers = append(disclaimers, strings.TrimSpace(line))
			continue
		}
		rest = append(rest, line)
	}
	return disclaimers, strings.Join(rest, "\n")
}
