package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/legalease/internal/document"
	"github.com/csheth/legalease/internal/session"
	"github.com/csheth/legalease/internal/transcript"
)

type documentPickedMsg struct {
	handle document.Handle
	err    error
}

type settlementMsg struct {
	settlement session.Settlement
}

type exportResultMsg struct {
	path  string
	turns int
	err   error
}

func openDocumentJob(path string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		handle, err := document.Pick(path)
		return documentPickedMsg{handle: handle, err: err}, err
	}
}

// sessionJob runs an orchestrator job off the update loop. The settlement is
// always delivered, even on failure, so the job's slot is released.
func sessionJob(job *session.Job, timeout time.Duration) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parent, timeout)
			defer cancel()
		}
		settlement := job.Run(ctx)
		return settlementMsg{settlement: settlement}, settlement.Err
	}
}

func exportTranscriptJob(path string, entry transcript.Entry) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		if err := transcript.Save(path, entry); err != nil {
			return exportResultMsg{err: err}, err
		}
		return exportResultMsg{path: path, turns: len(entry.Messages)}, nil
	}
}
