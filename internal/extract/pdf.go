package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

const defaultTimeout = 30 * time.Second

// ErrUnreadable is returned for documents the PDF reader cannot parse.
var ErrUnreadable = errors.New("unreadable pdf document")

// Extractor turns document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// PDF extracts plain text from PDF documents page by page.
type PDF struct {
	Timeout time.Duration
}

// NewPDF returns a PDF extractor bounded by the given per-document timeout.
func NewPDF(timeout time.Duration) *PDF {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PDF{Timeout: timeout}
}

type result struct {
	text string
	err  error
}

// Extract returns the text of all pages. It gives up when ctx is done or the
// timeout elapses; the reader goroutine is then left to finish on its own.
func (p *PDF) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty document: %w", ErrUnreadable)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := extractText(data)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("extract pdf text: %w", ctx.Err())
	case res := <-done:
		return res.text, res.err
	}
}

// extractText reads PDF bytes and returns plain text using ledongthuc/pdf.
// The reader panics on some malformed inputs, so panics are converted to
// ErrUnreadable.
func extractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v: %w", r, ErrUnreadable)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %v: %w", err, ErrUnreadable)
	}

	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %v: %w", page, err, ErrUnreadable)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}

	return strings.TrimSpace(builder.String()), nil
}
