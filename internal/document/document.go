package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrReadFailure reports that a document's bytes could not be read.
var ErrReadFailure = errors.New("document read failure")

// ReadError wraps the underlying I/O failure for a named document.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() []error {
	return []error{ErrReadFailure, e.Err}
}

// Source yields the raw bytes of a document each time it is opened.
type Source interface {
	Open() (io.ReadCloser, error)
}

// Handle is a selected document as supplied by the file picker.
type Handle struct {
	Name      string
	MediaType string
	Size      int64
	Pages     int
	Source    Source
}

// Payload is the text-safe encoding of a document, ready for a request body.
type Payload struct {
	MediaType string
	Data      string
}

// Encode reads the handle's bytes and returns them base64 encoded alongside the
// declared media type. Read errors are returned as *ReadError.
func Encode(h Handle) (Payload, error) {
	if h.Source == nil {
		return Payload{}, &ReadError{Name: h.Name, Err: errors.New("no byte source")}
	}
	rc, err := h.Source.Open()
	if err != nil {
		return Payload{}, &ReadError{Name: h.Name, Err: err}
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return Payload{}, &ReadError{Name: h.Name, Err: err}
	}
	return Payload{
		MediaType: h.MediaType,
		Data:      base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// FileSource reads a document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// BytesSource serves an in-memory copy of a document.
type BytesSource []byte

func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s)), nil
}

// FromBytes builds a handle around data already held in memory.
func FromBytes(name, mediaType string, data []byte) Handle {
	if mediaType == "" {
		mediaType = sniffMediaType(data)
	}
	return Handle{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Source:    BytesSource(append([]byte(nil), data...)),
	}
}
