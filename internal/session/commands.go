package session

import "github.com/csheth/legalease/internal/document"

// Command is a user intent consumed by Orchestrator.Dispatch.
type Command interface {
	commandName() string
}

// Upload selects a new document.
type Upload struct {
	Document document.Handle
}

// Simplify requests a plain-language rendering of the selected document.
type Simplify struct{}

// Ask submits a follow-up question about the simplified document.
type Ask struct {
	Question string
}

// Clear discards the document, results, conversation and error.
type Clear struct{}

// DismissError hides the current error.
type DismissError struct{}

// SetLanguage changes the output language for future requests.
type SetLanguage struct {
	Language string
}

func (Upload) commandName() string       { return "upload" }
func (Simplify) commandName() string     { return "simplify" }
func (Ask) commandName() string          { return "ask" }
func (Clear) commandName() string        { return "clear" }
func (DismissError) commandName() string { return "dismiss-error" }
func (SetLanguage) commandName() string  { return "set-language" }
