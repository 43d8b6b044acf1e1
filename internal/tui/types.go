package tui

import "github.com/charmbracelet/lipgloss"

type composerMode int

const (
	composerModePath composerMode = iota
	composerModeQuestion
)

const (
	composerPathPlaceholder     = "Path to a PDF or image (max %s)…"
	composerQuestionPlaceholder = "Ask about the simplified document…"
)

const heroTagline = "Legal documents, in plain language."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	transcriptPreviewLimit    = 240
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	userLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabel     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))

	heroAccentColor        = lipgloss.Color("#3b82f6")
	heroEmberColor         = lipgloss.Color("#0b1a33")
	heroTextColor          = lipgloss.Color("#e8f0ff")
	heroSecondaryTextColor = lipgloss.Color("#93c5fd")

	heroTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Background(heroEmberColor).Padding(0, 2)
	heroSummaryStyle   = lipgloss.NewStyle().PaddingLeft(2)
	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 2)
	errorBannerStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Foreground(lipgloss.Color("9")).Padding(0, 1)
	disclaimerStyle    = lipgloss.NewStyle().Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(lipgloss.Color("#eab308")).Foreground(lipgloss.Color("#fde68a")).PaddingLeft(1)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1e3a8a"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		` _    ___ ___   _   _    ___   _   ___ ___ `,
		`| |  | __/ __| /_\ | |  | __| /_\ / __| __|`,
		`| |__| _| (_ |/ _ \| |__| _| / _ \\__ \ _| `,
		`|____|___\___/_/ \_\____|___/_/ \_\___/___|`,
	}
)
