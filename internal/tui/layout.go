package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/legalease/internal/session"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	composerHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		composerHeight: 5,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	// header, input, help and the blank lines between them
	l.composerHeight = 5
	// hero, status bar, info line and the blank lines between panels
	const chrome = 14
	usable := height - chrome - l.composerHeight
	if usable < 6 {
		usable = 6
	}
	l.viewportHeight = usable
}

func (m *model) buildDisplayContent() string {
	cb := &strings.Builder{}
	snap := m.snapshot
	if snap.Document == nil {
		return m.buildIdleContent()
	}

	cb.WriteString(sectionHeaderStyle.Render("Simplified Document"))
	cb.WriteRune('\n')
	switch {
	case snap.Simplifying:
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s Simplifying %s into %s…", m.spinner.View(), snap.Document.Name, snap.Language)))
		cb.WriteRune('\n')
	case snap.HasSimplified:
		cb.WriteString(m.markdown.Render(snap.Simplified, m.wrapWidth(2)))
		cb.WriteRune('\n')
	case !m.config.Online:
		cb.WriteString(helperStyle.Render(fmt.Sprintf("Set %s (or llm.api_key) to enable simplification.", m.config.APIKeyEnv)))
		cb.WriteRune('\n')
	default:
		cb.WriteString(helperStyle.Render("Press Ctrl+S to simplify this document."))
		cb.WriteRune('\n')
	}

	if snap.HasSimplified {
		cb.WriteRune('\n')
		m.writeConversation(cb)
	}
	return cb.String()
}

func (m *model) writeConversation(cb *strings.Builder) {
	snap := m.snapshot
	cb.WriteString(sectionHeaderStyle.Render("Conversation"))
	cb.WriteRune('\n')
	if len(snap.Conversation) == 0 && !snap.Answering {
		cb.WriteString(helperStyle.Render("Ask me anything about the document."))
		cb.WriteRune('\n')
		return
	}
	wrap := m.wrapWidth(4)
	for idx, turn := range snap.Conversation {
		cb.WriteString(transcriptLabel(turn.Speaker))
		cb.WriteRune('\n')
		body := indentMultiline(wordwrap.String(turn.Text, wrap), "  ")
		if turn.Failed {
			body = errorStyle.Render(body)
		}
		cb.WriteString(body)
		cb.WriteRune('\n')
		if idx < len(snap.Conversation)-1 {
			cb.WriteRune('\n')
		}
	}
	if snap.Answering {
		cb.WriteRune('\n')
		cb.WriteString(transcriptLabel(session.SpeakerAssistant))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render(fmt.Sprintf("  %s Thinking…", m.spinner.View())))
		cb.WriteRune('\n')
	}
}

func (m *model) buildIdleContent() string {
	cb := &strings.Builder{}
	cb.WriteString(sectionHeaderStyle.Render("Open a Document in the Composer"))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render(fmt.Sprintf("Type the path to a PDF or image (max %s) below and press Enter.", m.maxSizeLabel())))
	cb.WriteRune('\n')
	cb.WriteString(helperStyle.Render("Ctrl+S simplifies it, then Enter asks follow-up questions. Ctrl+L changes the language."))
	cb.WriteRune('\n')
	return cb.String()
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func transcriptLabel(speaker session.Speaker) string {
	switch speaker {
	case session.SpeakerUser:
		return userLabelStyle.Render("You")
	case session.SpeakerAssistant:
		return assistantLabel.Render("LegalEase")
	default:
		return string(speaker)
	}
}

func formatSize(n int64) string {
	const (
		kib = 1024
		mib = 1024 * kib
	)
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	case n >= mib:
		return fmt.Sprintf("%.1fMB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1fKB", float64(n)/kib)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
