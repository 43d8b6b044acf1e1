package session

import "github.com/csheth/legalease/internal/document"

// Speaker identifies who authored a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the follow-up conversation.
type Turn struct {
	Speaker Speaker
	Text    string
	// Failed marks an assistant turn that reports a request failure.
	Failed bool
}

// Phase is derived from the state fields; it is never stored.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseDocumentSelected
	PhaseSimplifying
	PhaseReady
	PhaseAnswering
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseDocumentSelected:
		return "document selected"
	case PhaseSimplifying:
		return "simplifying"
	case PhaseReady:
		return "ready"
	case PhaseAnswering:
		return "answering"
	default:
		return "unknown"
	}
}

// State is the application state owned by an Orchestrator. Fields are only
// changed through the transition methods below.
type State struct {
	document     *document.Handle
	simplified   *string
	simplifying  bool
	answering    bool
	lastError    string
	conversation []Turn
	language     string
}

func newState(language string) *State {
	return &State{language: language}
}

func (s *State) phase() Phase {
	switch {
	case s.document == nil:
		return PhaseEmpty
	case s.simplifying:
		return PhaseSimplifying
	case s.simplified == nil:
		return PhaseDocumentSelected
	case s.answering:
		return PhaseAnswering
	default:
		return PhaseReady
	}
}

func (s *State) selectDocument(h document.Handle) {
	s.document = &h
	s.simplified = nil
	s.conversation = nil
	s.simplifying = false
	s.answering = false
	s.lastError = ""
}

func (s *State) beginSimplify() {
	s.simplifying = true
	s.answering = false
	s.simplified = nil
	s.conversation = nil
	s.lastError = ""
}

func (s *State) completeSimplify(text string) {
	s.simplifying = false
	s.simplified = &text
	s.conversation = nil
	s.lastError = ""
}

func (s *State) failSimplify(message string) {
	s.simplifying = false
	s.lastError = message
}

func (s *State) beginAnswer(question string) {
	s.conversation = append(s.conversation, Turn{Speaker: SpeakerUser, Text: question})
	s.answering = true
}

func (s *State) completeAnswer(text string) {
	s.conversation = append(s.conversation, Turn{Speaker: SpeakerAssistant, Text: text})
	s.answering = false
	s.lastError = ""
}

func (s *State) failAnswer(message string) {
	s.conversation = append(s.conversation, Turn{Speaker: SpeakerAssistant, Text: "Error: " + message, Failed: true})
	s.answering = false
}

func (s *State) reject(message string) {
	s.lastError = message
}

func (s *State) dismissError() {
	s.lastError = ""
}

func (s *State) setLanguage(language string) {
	s.language = language
}

// reset returns to Empty. The selected language survives.
func (s *State) reset() {
	*s = State{language: s.language}
}

// Snapshot is an immutable copy of the state handed to the projector.
type Snapshot struct {
	Document      *document.Handle
	Simplified    string
	HasSimplified bool
	Simplifying   bool
	Answering     bool
	LastError     string
	Conversation  []Turn
	Language      string
	Phase         Phase
}

// Failed reports the error overlay.
func (s Snapshot) Failed() bool {
	return s.LastError != ""
}

func (s *State) snapshot() Snapshot {
	snap := Snapshot{
		Simplifying: s.simplifying,
		Answering:   s.answering,
		LastError:   s.lastError,
		Language:    s.language,
		Phase:       s.phase(),
	}
	if s.document != nil {
		doc := *s.document
		snap.Document = &doc
	}
	if s.simplified != nil {
		snap.Simplified = *s.simplified
		snap.HasSimplified = true
	}
	if len(s.conversation) > 0 {
		snap.Conversation = append([]Turn(nil), s.conversation...)
	}
	return snap
}
