package tuitest

import (
	"bytes"
	"io"
	"sync"
)

// terminalReply answers one query that lipgloss, termenv or glamour send
// while detecting colours. Without an answer they stall until their own
// timeout and then fall back to a plain profile.
type terminalReply struct {
	name  string
	query []byte
	reply []byte
}

var terminalReplies = []terminalReply{
	{name: "cursor position", query: []byte("\x1b[6n"), reply: []byte("\x1b[1;1R")},
	{name: "foreground", query: []byte("\x1b]10;?\x07"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{name: "foreground", query: []byte("\x1b]10;?\x1b\\"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{name: "background", query: []byte("\x1b]11;?\x07"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{name: "background", query: []byte("\x1b]11;?\x1b\\"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

// longest query kept across reads so a split sequence still matches
const pendingTail = 16

type terminalResponder struct {
	w       io.Writer
	replies []terminalReply

	mu       sync.Mutex
	pending  []byte
	answered []string
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w, replies: terminalReplies}
}

// Process scans chunk for queries and writes replies in the order the
// queries appear in the stream.
func (tr *terminalResponder) Process(chunk []byte) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.pending = append(tr.pending, chunk...)
	for {
		at, rule := tr.earliest()
		if rule == nil {
			break
		}
		tr.pending = tr.pending[at+len(rule.query):]
		tr.answered = append(tr.answered, rule.name)
		_, _ = tr.w.Write(rule.reply)
	}
	if len(tr.pending) > pendingTail {
		tr.pending = append([]byte(nil), tr.pending[len(tr.pending)-pendingTail:]...)
	}
}

func (tr *terminalResponder) earliest() (int, *terminalReply) {
	at, match := -1, (*terminalReply)(nil)
	for i := range tr.replies {
		idx := bytes.Index(tr.pending, tr.replies[i].query)
		if idx >= 0 && (at < 0 || idx < at) {
			at, match = idx, &tr.replies[i]
		}
	}
	return at, match
}

// Answered lists the names of the queries replied to so far.
func (tr *terminalResponder) Answered() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.answered...)
}
