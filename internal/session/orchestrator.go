package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/csheth/legalease/internal/document"
	"github.com/csheth/legalease/internal/llm"
)

// DefaultMaxDocumentBytes is the largest document accepted by Upload.
const DefaultMaxDocumentBytes int64 = 4 * 1024 * 1024

// maxLanguageDistance bounds the edit distance accepted when matching a
// language label typed by the user.
const maxLanguageDistance = 2

var (
	// ErrOversizeDocument rejects a selection above the size limit.
	ErrOversizeDocument = errors.New("document too large")
	// ErrGatewayUnavailable rejects remote work when no gateway is configured.
	ErrGatewayUnavailable = errors.New("remote service not configured")
)

// JobKind names the single-flight class a job belongs to.
type JobKind string

const (
	JobSimplify JobKind = "simplify"
	JobAsk      JobKind = "ask"
)

// Options configure an Orchestrator. APIKeyEnv names the variable users set to
// enable the gateway; it only feeds error messages.
type Options struct {
	MaxDocumentBytes int64
	Languages        []string
	DefaultLanguage  string
	APIKeyEnv        string
}

// Orchestrator owns the application state and turns commands into state
// transitions and remote jobs. It is driven from a single goroutine.
type Orchestrator struct {
	state     *State
	gateway   llm.Sender
	maxBytes  int64
	languages []string
	keyEnv    string

	// contextID identifies the document session results belong to.
	contextID   string
	simplifyJob string
	askJob      string
}

// New builds an orchestrator. A nil gateway keeps the local transitions
// working and rejects simplify and ask.
func New(gateway llm.Sender, opts Options) *Orchestrator {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	languages := make([]string, 0, len(opts.Languages))
	for _, lang := range opts.Languages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	if len(languages) == 0 {
		languages = []string{"English"}
	}
	language := languages[0]
	if resolved, ok := resolveLanguage(opts.DefaultLanguage, languages); ok {
		language = resolved
	}
	return &Orchestrator{
		state:     newState(language),
		gateway:   gateway,
		maxBytes:  opts.MaxDocumentBytes,
		languages: languages,
		keyEnv:    keyEnvOrDefault(opts.APIKeyEnv),
		contextID: uuid.NewString(),
	}
}

func keyEnvOrDefault(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "GEMINI_API_KEY"
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	return o.state.snapshot()
}

// Languages lists the supported output languages in display order.
func (o *Orchestrator) Languages() []string {
	return append([]string(nil), o.languages...)
}

// MaxDocumentBytes reports the upload size limit.
func (o *Orchestrator) MaxDocumentBytes() int64 {
	return o.maxBytes
}

// Pending reports whether a job of kind has been dispatched and not settled.
func (o *Orchestrator) Pending(kind JobKind) bool {
	switch kind {
	case JobSimplify:
		return o.simplifyJob != ""
	case JobAsk:
		return o.askJob != ""
	default:
		return false
	}
}

// Dispatch applies cmd and returns the remote work it started, or nil.
func (o *Orchestrator) Dispatch(cmd Command) *Job {
	switch c := cmd.(type) {
	case Upload:
		o.upload(c.Document)
	case Simplify:
		return o.simplify()
	case Ask:
		return o.ask(c.Question)
	case Clear:
		o.clear()
	case DismissError:
		o.state.dismissError()
	case SetLanguage:
		o.setLanguage(c.Language)
	case nil:
	default:
		log.Printf("[session] ignoring unknown command %s", cmd.commandName())
	}
	return nil
}

func (o *Orchestrator) upload(h document.Handle) {
	if h.Size > o.maxBytes {
		err := fmt.Errorf("%w: %q is %d bytes", ErrOversizeDocument, h.Name, h.Size)
		log.Printf("[session] upload rejected: %v", err)
		o.state.reject(o.describeError(err))
		return
	}
	o.rotateContext()
	o.state.selectDocument(h)
	log.Printf("[session] selected %q (%s, %d bytes)", h.Name, h.MediaType, h.Size)
}

func (o *Orchestrator) simplify() *Job {
	if o.state.document == nil || o.state.simplifying {
		return nil
	}
	if o.gateway == nil {
		o.state.reject(o.describeError(ErrGatewayUnavailable))
		return nil
	}
	if o.simplifyJob != "" {
		o.state.reject("The previous document is still being simplified. Try again in a moment.")
		return nil
	}

	o.rotateContext()
	o.state.beginSimplify()
	handle := *o.state.document
	language := o.state.language
	gateway := o.gateway
	job := o.newJob(JobSimplify, func(ctx context.Context) (string, error) {
		payload, err := document.Encode(handle)
		if err != nil {
			return "", err
		}
		return gateway.Send(ctx, llm.SimplifyRequest(payload, language))
	})
	o.simplifyJob = job.ID
	return job
}

func (o *Orchestrator) ask(question string) *Job {
	question = strings.TrimSpace(question)
	if question == "" || o.state.simplified == nil || o.state.answering {
		return nil
	}
	if o.gateway == nil {
		o.state.reject(o.describeError(ErrGatewayUnavailable))
		return nil
	}
	if o.askJob != "" {
		o.state.reject("The previous question is still being answered. Try again in a moment.")
		return nil
	}

	o.state.beginAnswer(question)
	name := o.state.document.Name
	simplified := *o.state.simplified
	language := o.state.language
	gateway := o.gateway
	job := o.newJob(JobAsk, func(ctx context.Context) (string, error) {
		return gateway.Send(ctx, llm.ChatRequest(name, simplified, question, language))
	})
	o.askJob = job.ID
	return job
}

func (o *Orchestrator) clear() {
	o.rotateContext()
	o.state.reset()
}

func (o *Orchestrator) setLanguage(label string) {
	resolved, ok := resolveLanguage(label, o.languages)
	if !ok {
		o.state.reject(fmt.Sprintf("Unsupported language %q.", strings.TrimSpace(label)))
		return
	}
	o.state.setLanguage(resolved)
}

// Settle applies the outcome of a job. The job's single-flight slot is always
// released; its result is dropped when the document session has changed since
// dispatch.
func (o *Orchestrator) Settle(s Settlement) {
	switch s.Kind {
	case JobSimplify:
		if s.JobID != o.simplifyJob {
			log.Printf("[session] ignoring unknown simplify settlement %s", s.JobID)
			return
		}
		o.simplifyJob = ""
		if s.ContextID != o.contextID {
			log.Printf("[session] discarding stale simplify result %s", s.JobID)
			return
		}
		if s.Err != nil {
			log.Printf("[session] simplify failed: %v", s.Err)
			o.state.failSimplify(o.describeError(s.Err))
			return
		}
		o.state.completeSimplify(s.Text)
	case JobAsk:
		if s.JobID != o.askJob {
			log.Printf("[session] ignoring unknown ask settlement %s", s.JobID)
			return
		}
		o.askJob = ""
		if s.ContextID != o.contextID {
			log.Printf("[session] discarding stale answer %s", s.JobID)
			return
		}
		if s.Err != nil {
			log.Printf("[session] ask failed: %v", s.Err)
			o.state.failAnswer(o.describeError(s.Err))
			return
		}
		o.state.completeAnswer(s.Text)
	default:
		log.Printf("[session] ignoring settlement of unknown kind %q", s.Kind)
	}
}

func (o *Orchestrator) rotateContext() {
	o.contextID = uuid.NewString()
}

func (o *Orchestrator) newJob(kind JobKind, run func(context.Context) (string, error)) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		ContextID: o.contextID,
		run:       run,
	}
}

// describeError turns an error into the message shown to the user.
func (o *Orchestrator) describeError(err error) string {
	var (
		readErr      *document.ReadError
		exhaustedErr *llm.ExhaustedError
	)
	switch {
	case errors.Is(err, ErrOversizeDocument):
		return fmt.Sprintf("File is too large. Max %s.", formatBytes(o.maxBytes))
	case errors.Is(err, ErrGatewayUnavailable):
		return fmt.Sprintf("Remote service not configured (set %s).", o.keyEnv)
	case errors.As(err, &readErr):
		return fmt.Sprintf("Could not read %q: %v", readErr.Name, readErr.Err)
	case errors.As(err, &exhaustedErr):
		return fmt.Sprintf("Request failed after %d attempts: %v", exhaustedErr.Attempts, exhaustedErr.Err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request cancelled."
	default:
		return err.Error()
	}
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	switch {
	case n >= mib && n%mib == 0:
		return fmt.Sprintf("%dMB", n/mib)
	case n >= 1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// resolveLanguage maps a typed label onto a supported one: exact match first,
// then the leading word ("hindi" for "Hindi (हिन्दी)"), then the closest
// leading word within maxLanguageDistance edits.
func resolveLanguage(label string, languages []string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	for _, lang := range languages {
		if strings.EqualFold(lang, label) {
			return lang, true
		}
	}
	word := strings.ToLower(leadingWord(label))
	for _, lang := range languages {
		if strings.ToLower(leadingWord(lang)) == word {
			return lang, true
		}
	}
	best, bestDistance := "", maxLanguageDistance+1
	for _, lang := range languages {
		d := levenshtein.ComputeDistance(word, strings.ToLower(leadingWord(lang)))
		if d < bestDistance {
			best, bestDistance = lang, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func leadingWord(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
