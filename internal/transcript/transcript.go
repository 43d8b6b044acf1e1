package transcript

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/csheth/legalease/internal/session"
)

// FileName is the export file created inside the configured export directory.
const FileName = "legalease_transcripts.json"

// ErrNothingToExport is returned when no document has been selected.
var ErrNothingToExport = errors.New("nothing to export")

// Entry captures a point-in-time view of a document session.
type Entry struct {
	EntryType    string    `json:"entryType"`
	ID           string    `json:"id"`
	DocumentName string    `json:"documentName"`
	MediaType    string    `json:"mediaType,omitempty"`
	Pages        int       `json:"pages,omitempty"`
	Language     string    `json:"language"`
	Simplified   string    `json:"simplified,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
	Backend      string    `json:"backend,omitempty"`
	ExportedAt   time.Time `json:"exportedAt"`
}

// Message records one conversation turn.
type Message struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Failed  bool   `json:"failed,omitempty"`
}

// Path joins dir with FileName.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// FromSnapshot builds an export entry for the session shown in snap.
func FromSnapshot(snap session.Snapshot, backend string, now time.Time) (Entry, error) {
	if snap.Document == nil {
		return Entry{}, ErrNothingToExport
	}
	entry := Entry{
		EntryType:    "transcript",
		ID:           uuid.NewString(),
		DocumentName: snap.Document.Name,
		MediaType:    snap.Document.MediaType,
		Pages:        snap.Document.Pages,
		Language:     snap.Language,
		Simplified:   snap.Simplified,
		Backend:      backend,
		ExportedAt:   now.UTC(),
	}
	for _, turn := range snap.Conversation {
		entry.Messages = append(entry.Messages, Message{
			Speaker: string(turn.Speaker),
			Text:    turn.Text,
			Failed:  turn.Failed,
		})
	}
	return entry, nil
}

// Save appends entries to the export file, creating it if necessary.
func Save(path string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	existing, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	payload := append(existing, entries...)
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load returns all exported entries.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
