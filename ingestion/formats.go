// Package ingestion turns uploaded documents into embedded, stored chunks.
package ingestion

import (
	"path/filepath"
	"strings"
)

// DocumentFormat enumerates the parsing strategies selected by file extension.
type DocumentFormat string

const (
	// FormatText covers plain-text extensions decoded as-is.
	FormatText DocumentFormat = "text"
	// FormatPDF selects the PDF extraction cascade.
	FormatPDF DocumentFormat = "pdf"
)

// DetectFormat infers the parsing strategy from the file name. Unknown
// extensions fall back to a best-effort text decode.
func DetectFormat(fileName string) DocumentFormat {
	if strings.ToLower(filepath.Ext(fileName)) == ".pdf" {
		return FormatPDF
	}
	return FormatText
}
