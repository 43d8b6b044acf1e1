package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/legalease/internal/session"
	"github.com/csheth/legalease/internal/transcript"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Session *session.Orchestrator
	// Online reports whether a remote gateway is configured.
	Online        bool
	APIKeyEnv     string
	Backend       string
	ExportDir     string
	JobTimeout    time.Duration
	MarkdownStyle string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Session == nil {
		config.Session = session.New(nil, session.Options{APIKeyEnv: config.APIKeyEnv})
	}
	if config.APIKeyEnv == "" {
		config.APIKeyEnv = "GEMINI_API_KEY"
	}

	composer := textinput.New()
	composer.Focus()
	composer.CharLimit = 4096
	composer.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		layout:        newPageLayout(),
		jobs:          newJobBus(),
		tracker:       newJobTracker(),
		markdown:      newMarkdownRenderer(config.MarkdownStyle),
		viewportDirty: true,
		infoMessage:   "Open a document to begin.",
	}
	m.refreshSnapshot()
	return m
}

type model struct {
	config Config

	composer     textinput.Model
	composerMode composerMode
	spinner      spinner.Model
	viewport     viewport.Model
	layout       pageLayout
	jobs         *jobBus
	tracker      *jobTracker
	markdown     *markdownRenderer

	snapshot      session.Snapshot
	pathRequested bool
	opening       bool
	exporting     bool
	infoMessage   string
	errorMessage  string
	helpVisible   bool
	viewportDirty bool
	followTail    bool
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.composer.Width = max(m.layout.viewportWidth-4, 20)
		m.markdown.Resize(m.wrapWidth(2))
		m.markViewportDirty()
		return m, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	case jobSignalMsg:
		m.tracker.Record(msg.Snapshot)
		return m, nil
	case jobResultEnvelope:
		m.tracker.Record(msg.Snapshot)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case documentPickedMsg:
		return m, m.handleDocumentPicked(msg)
	case settlementMsg:
		m.handleSettlement(msg)
		return m, nil
	case exportResultMsg:
		m.handleExportResult(msg)
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+o":
		m.actionOpen()
		return m, nil
	case "ctrl+s":
		return m, m.actionSimplify()
	case "ctrl+l":
		return m, m.actionCycleLanguage()
	case "ctrl+x":
		return m, m.actionClear()
	case "ctrl+d":
		m.actionDismissError()
		return m, nil
	case "ctrl+e":
		return m, m.actionExport()
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	case "?":
		if strings.TrimSpace(m.composer.Value()) == "" {
			m.actionToggleHelp()
			return m, nil
		}
	}
	if cmd, handled := m.processComposerKey(key); handled {
		return m, cmd
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

func (m *model) processComposerKey(key tea.KeyMsg) (tea.Cmd, bool) {
	switch key.Type {
	case tea.KeyEsc:
		if strings.TrimSpace(m.composer.Value()) != "" {
			m.composer.SetValue("")
			return nil, true
		}
		if m.pathRequested {
			m.pathRequested = false
			m.syncComposer()
			m.infoMessage = "Back to questions."
		}
		return nil, true
	case tea.KeyEnter:
		value := strings.TrimSpace(m.composer.Value())
		if value == "" {
			return nil, true
		}
		m.composer.SetValue("")
		if m.composerMode == composerModeQuestion {
			return m.submitQuestion(value), true
		}
		return m.submitPath(value), true
	}
	return nil, false
}

func (m *model) submitPath(path string) tea.Cmd {
	if m.opening {
		m.infoMessage = "Still opening the previous file…"
		return nil
	}
	m.opening = true
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Opening %s…", previewText(path, transcriptPreviewLimit))
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindOpen, openDocumentJob(path)))
}

func (m *model) submitQuestion(question string) tea.Cmd {
	if m.snapshot.Answering {
		m.infoMessage = "Wait for the current answer before asking again."
		return nil
	}
	cmd := m.dispatch(session.Ask{Question: question})
	if cmd != nil {
		m.followTail = true
		m.infoMessage = fmt.Sprintf("Asking: %s", previewText(question, transcriptPreviewLimit))
	}
	return cmd
}

func (m *model) actionOpen() {
	m.pathRequested = true
	m.syncComposer()
	m.composer.SetValue("")
	m.infoMessage = "Type a file path and press Enter. Esc returns to questions."
}

func (m *model) actionSimplify() tea.Cmd {
	if m.snapshot.Document == nil {
		m.infoMessage = "Open a document first."
		return nil
	}
	if m.snapshot.Simplifying {
		m.infoMessage = "Simplification already running."
		return nil
	}
	cmd := m.dispatch(session.Simplify{})
	if cmd != nil {
		m.followTail = false
		m.viewport.SetYOffset(0)
		m.infoMessage = fmt.Sprintf("Simplifying into %s…", m.snapshot.Language)
	}
	return cmd
}

func (m *model) actionCycleLanguage() tea.Cmd {
	languages := m.config.Session.Languages()
	if len(languages) == 0 {
		return nil
	}
	next := languages[0]
	for idx, lang := range languages {
		if lang == m.snapshot.Language {
			next = languages[(idx+1)%len(languages)]
			break
		}
	}
	cmd := m.dispatch(session.SetLanguage{Language: next})
	m.infoMessage = fmt.Sprintf("Output language: %s (applies to the next request).", m.snapshot.Language)
	return cmd
}

func (m *model) actionClear() tea.Cmd {
	cmd := m.dispatch(session.Clear{})
	m.errorMessage = ""
	m.pathRequested = false
	m.followTail = false
	m.syncComposer()
	m.viewport.SetYOffset(0)
	m.infoMessage = "Cleared. Open another document."
	return cmd
}

func (m *model) actionDismissError() {
	m.dispatch(session.DismissError{})
	m.errorMessage = ""
}

func (m *model) actionExport() tea.Cmd {
	if m.exporting {
		m.infoMessage = "Export already running."
		return nil
	}
	entry, err := transcript.FromSnapshot(m.snapshot, m.config.Backend, time.Now())
	if err != nil {
		m.infoMessage = "Nothing to export yet. Open a document first."
		return nil
	}
	m.exporting = true
	m.infoMessage = "Exporting transcript…"
	path := transcript.Path(m.config.ExportDir)
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExport, exportTranscriptJob(path, entry)))
}

func (m *model) actionToggleHelp() {
	m.helpVisible = !m.helpVisible
	if m.helpVisible {
		m.infoMessage = "Shortcuts shown. Press ? to hide."
	} else {
		m.infoMessage = "Shortcuts hidden."
	}
}

// dispatch forwards cmd to the orchestrator and starts the job it returns.
func (m *model) dispatch(cmd session.Command) tea.Cmd {
	job := m.config.Session.Dispatch(cmd)
	m.refreshSnapshot()
	if job == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKind(job.Kind), sessionJob(job, m.config.JobTimeout)))
}

func (m *model) handleDocumentPicked(msg documentPickedMsg) tea.Cmd {
	m.opening = false
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("Could not open file: %v", msg.err)
		m.infoMessage = "Check the path and try again."
		return nil
	}
	m.pathRequested = false
	cmd := m.dispatch(session.Upload{Document: msg.handle})
	if m.snapshot.Failed() {
		m.infoMessage = "Pick a smaller file."
		return cmd
	}
	m.followTail = false
	m.viewport.SetYOffset(0)
	m.infoMessage = fmt.Sprintf("Selected %s (%s). Press Ctrl+S to simplify.", msg.handle.Name, formatSize(msg.handle.Size))
	return cmd
}

func (m *model) handleSettlement(msg settlementMsg) {
	m.config.Session.Settle(msg.settlement)
	m.refreshSnapshot()
	switch msg.settlement.Kind {
	case session.JobSimplify:
		switch {
		case m.snapshot.Simplifying:
		case m.snapshot.HasSimplified:
			m.infoMessage = "Simplified. Ask a follow-up question below."
		case m.snapshot.Failed():
			m.infoMessage = "Simplification failed. Press Ctrl+S to retry."
		}
	case session.JobAsk:
		if m.snapshot.Phase == session.PhaseReady {
			m.infoMessage = "Ask another question or press Ctrl+E to export."
		}
	}
}

func (m *model) handleExportResult(msg exportResultMsg) {
	m.exporting = false
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("Export failed: %v", msg.err)
		return
	}
	m.infoMessage = fmt.Sprintf("Exported %d turn(s) to %s", msg.turns, msg.path)
}

func (m *model) refreshSnapshot() {
	m.snapshot = m.config.Session.Snapshot()
	m.syncComposer()
	m.markViewportDirty()
}

func (m *model) syncComposer() {
	mode := composerModePath
	if m.snapshot.HasSimplified && !m.pathRequested {
		mode = composerModeQuestion
	}
	m.composerMode = mode
	switch mode {
	case composerModeQuestion:
		m.composer.Placeholder = composerQuestionPlaceholder
	default:
		m.composer.Placeholder = fmt.Sprintf(composerPathPlaceholder, m.maxSizeLabel())
	}
}

func (m *model) maxSizeLabel() string {
	return formatSize(m.config.Session.MaxDocumentBytes())
}

func (m *model) busy() bool {
	return m.snapshot.Simplifying || m.snapshot.Answering || m.opening || m.exporting
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewportDirty = false
	m.viewport.SetContent(m.buildDisplayContent())
	if m.followTail {
		m.viewport.GotoBottom()
	}
}
