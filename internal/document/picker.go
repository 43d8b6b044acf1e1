package document

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mediaTypePDF = "application/pdf"
	sniffLength  = 512
)

// Pick stats a local file and returns a handle describing it. The size limit is
// not enforced here.
func Pick(path string) (Handle, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Handle{}, fmt.Errorf("no file selected")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Handle{}, fmt.Errorf("select %s: %w", path, err)
	}
	if info.IsDir() {
		return Handle{}, fmt.Errorf("select %s: is a directory", path)
	}

	mediaType := mediaTypeFromExtension(path)
	if mediaType == "" {
		mediaType, err = sniffFile(path)
		if err != nil {
			return Handle{}, &ReadError{Name: filepath.Base(path), Err: err}
		}
	}

	h := Handle{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
		Source:    FileSource{Path: path},
	}
	if mediaType == mediaTypePDF {
		h.Pages = countPDFPages(path)
	}
	return h, nil
}

func mediaTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	value := mime.TypeByExtension(ext)
	if value == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return mediaType
}

func sniffFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return sniffMediaType(head[:n]), nil
}

func sniffMediaType(data []byte) string {
	if len(data) > sniffLength {
		data = data[:sniffLength]
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return mediaTypePDF
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

// countPDFPages is informational only; unparseable PDFs report zero pages.
func countPDFPages(path string) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()
	return reader.NumPage()
}
