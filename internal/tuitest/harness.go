package tuitest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
)

// Step is one scripted interaction. The harness sleeps for Delay, then waits
// until WaitFor has been drawn since the previous WaitFor matched, then writes
// Input. Any of the three may be empty.
type Step struct {
	Delay   time.Duration
	WaitFor string
	Input   []byte
}

// Config configures how the harness spawns and drives the program.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

// Recording contains the raw terminal stream, the parsed frames and the
// terminal queries the responder answered.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Answered []string
	Duration time.Duration
}

// Run executes the configured command inside a PTY, replays the steps and
// captures every byte written to the terminal.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = withDefaults(cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	screen := newScreenBuffer()
	responder := newTerminalResponder(ptmx)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer screen.Close()
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				responder.Process(chunk)
				_, _ = screen.Write(chunk)
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	if err := replay(ctx, ptmx, screen, cfg.Steps); err != nil {
		return nil, err
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()
	select {
	case err := <-waitErr:
		if err != nil && !exitAllowed(cfg, err) {
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}

	// Closing the PTY lets the reader drain and stop.
	_ = ptmx.Close()
	<-readDone

	raw := screen.Bytes()
	return &Recording{
		Raw:      raw,
		Frames:   parseFrames(raw),
		Answered: responder.Answered(),
		Duration: time.Since(start),
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

func replay(ctx context.Context, w io.Writer, screen *screenBuffer, steps []Step) error {
	mark := 0
	for idx, step := range steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: step %d: %w", idx, ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if step.WaitFor != "" {
			next, err := screen.WaitFor(ctx, step.WaitFor, mark)
			if err != nil {
				return fmt.Errorf("tuitest: step %d: %w", idx, err)
			}
			mark = next
		}
		if len(step.Input) > 0 {
			if _, err := w.Write(step.Input); err != nil {
				return fmt.Errorf("tuitest: step %d: write input: %w", idx, err)
			}
		}
	}
	return nil
}

func exitAllowed(cfg Config, err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		for _, code := range cfg.AllowedExitCodes {
			if exitErr.ExitCode() == code {
				return true
			}
		}
	}
	return cfg.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt")
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

var (
	// KeyEnter sends a carriage return to the PTY.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC requests the program to terminate.
	KeyCtrlC = []byte{3}
	// KeyCtrlD dismisses the error banner.
	KeyCtrlD = []byte{4}
	// KeyCtrlE exports the transcript.
	KeyCtrlE = []byte{5}
	// KeyCtrlL cycles the output language.
	KeyCtrlL = []byte{12}
	// KeyCtrlO asks the composer for a file path.
	KeyCtrlO = []byte{15}
	// KeyCtrlS starts simplification.
	KeyCtrlS = []byte{19}
	// KeyCtrlX clears the session.
	KeyCtrlX = []byte{24}
	// KeyEsc clears the composer or leaves path entry.
	KeyEsc = []byte{27}
)

// Type returns the bytes for text typed at the keyboard.
func Type(text string) []byte {
	return []byte(text)
}
