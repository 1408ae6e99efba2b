package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	dslipak "github.com/dslipak/pdf"
	"github.com/ledongthuc/pdf"
)

const (
	// ParserPlainText tags documents decoded directly as text.
	ParserPlainText = "plain-text"
	// ParserPDFPages tags text recovered page by page from a PDF.
	ParserPDFPages = "pdf-pages"
	// ParserPDFPlain tags text recovered by the whole-document fallback.
	ParserPDFPlain = "pdf-plain"

	// MinTextLength is the smallest extraction considered usable. Anything
	// shorter is treated as a failed parse.
	MinTextLength = 50

	textSampleLength = 500
)

// ParsedDocument is the normalized output of a successful parse.
type ParsedDocument struct {
	Text   string
	Parser string
}

// ParseError reports an unextractable document. It carries which parser was
// attempted last and a short sample of whatever text came out, so the caller
// can return a diagnosable client error instead of a blind failure.
type ParseError struct {
	Parser string
	Sample string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse document (%s): %v", e.Parser, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDocument converts uploaded bytes into whitespace-normalized text. PDFs
// go through a two-stage cascade; everything else is decoded as text.
func ParseDocument(fileName string, data []byte) (*ParsedDocument, error) {
	if DetectFormat(fileName) == FormatPDF {
		return parsePDF(data)
	}

	text := normalizeWhitespace(string(data))
	return &ParsedDocument{Text: text, Parser: ParserPlainText}, nil
}

func parsePDF(data []byte) (*ParsedDocument, error) {
	text, err := extractPDFPages(data)
	if err == nil && len(text) >= MinTextLength {
		return &ParsedDocument{Text: text, Parser: ParserPDFPages}, nil
	}

	fallback, fbErr := extractPDFPlain(data)
	if fbErr == nil && len(fallback) >= MinTextLength {
		return &ParsedDocument{Text: fallback, Parser: ParserPDFPlain}, nil
	}

	sample := text
	if fallback != "" {
		sample = fallback
	}
	cause := fbErr
	if cause == nil {
		cause = fmt.Errorf("no extractable text")
	}
	return nil, &ParseError{Parser: ParserPDFPlain, Sample: truncate(sample, textSampleLength), Err: cause}
}

// extractPDFPages concatenates the text runs of every page.
func extractPDFPages(data []byte) (text string, err error) {
	// The pdf readers panic on some malformed inputs; a broken upload must
	// surface as a parse failure, not a crash.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}

	return normalizeWhitespace(sb.String()), nil
}

// extractPDFPlain pulls the whole text layer in one pass.
func extractPDFPlain(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := dslipak.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return normalizeWhitespace(buf.String()), nil
}

// normalizeWhitespace collapses whitespace runs to single spaces and trims.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
