package tuitest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var errScreenClosed = errors.New("program output ended")

// screenBuffer accumulates PTY output and wakes waiters on every write.
type screenBuffer struct {
	mu      sync.Mutex
	raw     []byte
	changed chan struct{}
	closed  bool
}

func newScreenBuffer() *screenBuffer {
	return &screenBuffer{changed: make(chan struct{})}
}

func (b *screenBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raw = append(b.raw, p...)
	b.notifyLocked()
	return len(p), nil
}

// Close marks the stream finished. Pending and later waits stop blocking.
func (b *screenBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.notifyLocked()
}

func (b *screenBuffer) notifyLocked() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// Bytes returns a copy of everything written so far.
func (b *screenBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.raw...)
}

// WaitFor blocks until text shows up in the plain output written at or after
// offset from. It returns the buffer length at the time of the match, which
// callers pass back in so a repeated wait needs a fresh render.
func (b *screenBuffer) WaitFor(ctx context.Context, text string, from int) (int, error) {
	for {
		b.mu.Lock()
		if from > len(b.raw) {
			from = len(b.raw)
		}
		plain := stripANSI(strings.ReplaceAll(string(b.raw[from:]), "\r", ""))
		end, changed, closed := len(b.raw), b.changed, b.closed
		b.mu.Unlock()

		if strings.Contains(plain, text) {
			return end, nil
		}
		if closed {
			return from, fmt.Errorf("waiting for %q: %w", text, errScreenClosed)
		}
		select {
		case <-ctx.Done():
			return from, fmt.Errorf("waiting for %q: %w", text, ctx.Err())
		case <-changed:
		}
	}
}
