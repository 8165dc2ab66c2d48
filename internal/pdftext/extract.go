package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentParseError reports an upload that could not be read as a PDF.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("failed to read PDF: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// ErrNoText is wrapped in a DocumentParseError when a PDF has no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// Extractor implements text extraction for the summarize pipeline.
type Extractor struct{}

// Extract calls the package-level Extract.
func (Extractor) Extract(data []byte) (string, error) {
	return Extract(data)
}

// Extract returns the plain text of every page, in page order, trimmed of
// surrounding whitespace.
func Extract(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", &DocumentParseError{Err: errors.New("empty file")}
	}

	// The PDF library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &DocumentParseError{Err: fmt.Errorf("malformed document: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &DocumentParseError{Err: err}
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", &DocumentParseError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, content)
	}

	text = joinPages(pages)
	if text == "" {
		return "", &DocumentParseError{Err: ErrNoText}
	}
	return text, nil
}

func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}
