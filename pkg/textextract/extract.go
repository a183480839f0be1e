package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupported means the file type maps to no extractor. Callers must
	// reject before creating any state.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrWordNotImplemented marks the Word branch, which is deliberately an
	// explicit failure rather than a silent no-op.
	ErrWordNotImplemented = errors.New("word document extraction not implemented")
)

// Kind is one of the fixed set of supported extractors.
type Kind string

const (
	KindText Kind = "txt"
	KindPDF  Kind = "pdf"
	KindWord Kind = "word"
)

// Detect maps a filename extension and declared content type to an extractor
// kind. The extension wins when both are present.
func Detect(filename, contentType string) (Kind, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "txt":
		return KindText, nil
	case "pdf":
		return KindPDF, nil
	case "doc", "docx":
		return KindWord, nil
	}

	switch strings.ToLower(contentType) {
	case "text/plain":
		return KindText, nil
	case "application/pdf":
		return KindPDF, nil
	case "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindWord, nil
	}

	if ext != "" {
		return "", fmt.Errorf("%w: .%s", ErrUnsupported, ext)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
}

// Extract pulls plain text out of the raw bytes for the given kind. Extraction
// is deterministic: the same bytes always yield the same text.
func Extract(data []byte, kind Kind) (string, error) {
	switch kind {
	case KindText:
		return string(bytes.TrimSpace(data)), nil
	case KindPDF:
		return extractPDF(data)
	case KindWord:
		return "", ErrWordNotImplemented
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String()), nil
}
