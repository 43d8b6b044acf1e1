package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.sessionMeterView(), m.viewport.View()}
	if banner := m.errorBannerView(); banner != "" {
		parts = append(parts, banner)
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView())
	}
	parts = append(parts, m.composerPanel())
	return joinNonEmpty(parts)
}

func (m *model) composerPanel() string {
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render("Composer"),
		m.composer.View(),
		helperStyle.Render(m.composerHelpText()),
	})
}

func (m *model) composerHelpText() string {
	if m.composerMode == composerModeQuestion {
		return "Enter: ask • Ctrl+O: open another file • Esc: clear • ?: shortcuts"
	}
	if m.snapshot.HasSimplified {
		return "Enter: open file • Esc: back to questions • ?: shortcuts"
	}
	return "Enter: open file • Ctrl+S: simplify • ?: shortcuts"
}

func (m *model) errorBannerView() string {
	var messages []string
	if m.snapshot.LastError != "" {
		messages = append(messages, m.snapshot.LastError)
	}
	if m.errorMessage != "" {
		messages = append(messages, m.errorMessage)
	}
	if len(messages) == 0 {
		return ""
	}
	body := wordwrap.String(strings.Join(messages, "\n"), m.wrapWidth(6))
	return errorBannerStyle.Render(body + "\n" + helperStyle.Render("Ctrl+D to dismiss"))
}

func (m *model) heroView() string {
	logo := renderLogo()
	doc := m.snapshot.Document
	if doc == nil {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			logo,
			taglineStyle.Render(heroTagline),
		)
	}

	title := heroTitleStyle.Render(wordwrap.String(doc.Name, 48))
	meta := []string{helperStyle.Render(fmt.Sprintf("Type: %s", doc.MediaType))}
	meta = append(meta, helperStyle.Render(fmt.Sprintf("Size: %s", formatSize(doc.Size))))
	if doc.Pages > 0 {
		meta = append(meta, helperStyle.Render(fmt.Sprintf("Pages: %d", doc.Pages)))
	}
	content := strings.Join(append([]string{title}, meta...), "\n")
	summary := heroBoxStyle.Render(content)
	panel := lipgloss.JoinHorizontal(lipgloss.Top, logo, heroSummaryStyle.Render(summary))
	return lipgloss.JoinVertical(lipgloss.Left, panel, taglineStyle.Render(heroTagline))
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) sessionMeterView() string {
	snap := m.snapshot
	stats := []string{
		fmt.Sprintf("Phase %s", snap.Phase),
		fmt.Sprintf("Language %s", snap.Language),
		fmt.Sprintf("Turns %d", len(snap.Conversation)),
	}
	if m.config.Online {
		stats = append(stats, m.config.Backend)
	} else {
		stats = append(stats, "offline")
	}
	if running := m.tracker.Running(); running > 0 {
		stats = append(stats, fmt.Sprintf("Jobs %d running", running))
	} else if last, ok := m.tracker.Last(); ok {
		stats = append(stats, fmt.Sprintf("Last %s %s (%s)", last.Kind, last.Status, last.Duration.Round(time.Millisecond)))
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"Ctrl+O", "Open file"},
		{"Ctrl+S", "Simplify"},
		{"Enter", "Ask question"},
		{"Ctrl+L", "Next language"},
		{"Ctrl+E", "Export transcript"},
		{"Ctrl+X", "Clear session"},
		{"Ctrl+D", "Dismiss error"},
		{"↑/↓", "Scroll"},
		{"?", "Toggle shortcuts"},
	}
	rows := []string{sectionHeaderStyle.Render("Keyboard Shortcuts")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width++
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	// shadow first, offset one cell down and right, then the face on top
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
		}
	}
	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}
