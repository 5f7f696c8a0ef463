// Package extract provides best-effort text extraction from document formats.
//
// Extraction never fails: on any adapter error or missing capability the
// returned Result carries a bracketed placeholder string and a structured
// degraded marker, so ingestion can proceed with a visible but non-blocking
// signal instead of a hard failure.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docuchat/docuchat/internal/filetype"
)

// Result is the outcome of a text extraction attempt. When Degraded is true,
// Text holds a placeholder describing what went wrong; the placeholder still
// flows through chunking so the document remains visible to retrieval.
type Result struct {
	Text     string
	Degraded bool
	Reason   string
	Err      error
}

// Extractor dispatches extraction by MIME type with filename fallbacks.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns best-effort plain text for content. Dispatch order: exact
// MIME match, MIME substring match (word/spreadsheet/presentation), filename
// extension, generic text decode, binary placeholder. It never returns an
// error; failures degrade to a placeholder Result.
func (e *Extractor) Extract(content []byte, mimeType, filename string) Result {
	lower := strings.ToLower(filename)
	switch {
	case mimeType == filetype.MimeText:
		return decodeText(content)
	case mimeType == filetype.MimePDF:
		text, err := extractPDF(content)
		return adapt(text, err, "PDF", filename)
	case strings.Contains(mimeType, "word") || hasSuffixAny(lower, ".doc", ".docx"):
		if strings.HasSuffix(lower, ".doc") {
			return degraded("legacy .doc format not supported", nil,
				"[Legacy .doc file - limited support]")
		}
		text, err := extractDOCX(content)
		return adapt(text, err, "Word", filename)
	case strings.Contains(mimeType, "spreadsheet") || hasSuffixAny(lower, ".xls", ".xlsx", ".ods"):
		if strings.HasSuffix(lower, ".ods") {
			text, err := extractODS(content)
			return adapt(text, err, "Spreadsheet", filename)
		}
		text, err := extractExcel(content)
		return adapt(text, err, "Excel", filename)
	case strings.Contains(mimeType, "presentation") || hasSuffixAny(lower, ".ppt", ".pptx", ".odp"):
		if strings.HasSuffix(lower, ".ppt") {
			return degraded("legacy .ppt format not supported", nil,
				"[Legacy .ppt file - limited support]")
		}
		if strings.HasSuffix(lower, ".odp") {
			text, err := extractODP(content)
			return adapt(text, err, "Presentation", filename)
		}
		text, err := extractPPTX(content)
		return adapt(text, err, "PowerPoint", filename)
	case strings.HasPrefix(mimeType, "text/"):
		return decodeText(content)
	default:
		if utf8.Valid(content) {
			return Result{Text: string(content)}
		}
		return degraded("binary content with no text decoding", nil,
			fmt.Sprintf("[Binary file: %s]", filename))
	}
}

// adapt converts an adapter (text, error) pair into a Result.
func adapt(text string, err error, format, filename string) Result {
	if err != nil {
		return degraded(fmt.Sprintf("%s extraction failed", format), err,
			fmt.Sprintf("[Error extracting content from %s]", filename))
	}
	return Result{Text: text}
}

func degraded(reason string, err error, placeholder string) Result {
	return Result{Text: placeholder, Degraded: true, Reason: reason, Err: err}
}

func hasSuffixAny(name string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
