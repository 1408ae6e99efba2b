package ingestion

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatText, DetectFormat("notes.txt"))
	assert.Equal(t, FormatText, DetectFormat("README.md"))
	assert.Equal(t, FormatText, DetectFormat("data.unknown"))
	assert.Equal(t, FormatText, DetectFormat("no-extension"))
	assert.Equal(t, FormatPDF, DetectFormat("report.pdf"))
	assert.Equal(t, FormatPDF, DetectFormat("REPORT.PDF"))
}

func TestParseDocumentPlainText(t *testing.T) {
	parsed, err := ParseDocument("notes.txt", []byte("  Hello\n\n\tworld  \r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world", parsed.Text)
	assert.Equal(t, ParserPlainText, parsed.Parser)
}

func TestParseDocumentUnknownExtensionIsText(t *testing.T) {
	parsed, err := ParseDocument("data.log", []byte("line one\nline two"))
	require.NoError(t, err)
	assert.Equal(t, "line one line two", parsed.Text)
	assert.Equal(t, ParserPlainText, parsed.Parser)
}

func TestParseDocumentEmptyFileDoesNotFail(t *testing.T) {
	// An empty text file parses to empty text; the pipeline rejects it later
	// on the length check rather than the parser blowing up.
	parsed, err := ParseDocument("empty.txt", nil)
	require.NoError(t, err)
	assert.Empty(t, parsed.Text)
}

func TestParseDocumentBrokenPDF(t *testing.T) {
	_, err := ParseDocument("broken.pdf", []byte("this is not a pdf at all"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, ParserPDFPlain, parseErr.Parser)
}

func TestParseDocumentEmptyPDF(t *testing.T) {
	_, err := ParseDocument("empty.pdf", nil)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseErrorSampleIsBounded(t *testing.T) {
	parseErr := &ParseError{
		Parser: ParserPDFPlain,
		Sample: truncate(strings.Repeat("x", 2000), textSampleLength),
		Err:    errors.New("too short"),
	}
	assert.Len(t, parseErr.Sample, textSampleLength)
	assert.Contains(t, parseErr.Error(), ParserPDFPlain)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "", normalizeWhitespace("   \n\t  "))
	assert.Equal(t, "a b c", normalizeWhitespace("a\nb\t\tc"))
	assert.Equal(t, "x", normalizeWhitespace("x"))
}
