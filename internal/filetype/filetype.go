// Package filetype classifies raw bytes plus a filename into a MIME type and extension.
package filetype

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MIME types for the formats the extractor understands.
const (
	MimePDF         = "application/pdf"
	MimeDocx        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXlsx        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePptx        = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeDoc         = "application/msword"
	MimeXls         = "application/vnd.ms-excel"
	MimePpt         = "application/vnd.ms-powerpoint"
	MimeText        = "text/plain"
	MimeMarkdown    = "text/markdown"
	MimeCSV         = "text/csv"
	MimeHTML        = "text/html"
	MimeOctetStream = "application/octet-stream"
)

// extensionMIME maps known filename extensions to MIME types.
var extensionMIME = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDocx,
	".doc":  MimeDoc,
	".xlsx": MimeXlsx,
	".xls":  MimeXls,
	".pptx": MimePptx,
	".ppt":  MimePpt,
	".txt":  MimeText,
	".md":   MimeMarkdown,
	".csv":  MimeCSV,
	".html": MimeHTML,
	".htm":  MimeHTML,
	".json": "application/json",
	".xml":  "application/xml",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",
}

var (
	sigPDF = []byte("%PDF")
	sigZIP = []byte("PK\x03\x04")
	sigOLE = []byte{0xd0, 0xcf, 0x11, 0xe0}
)

// Detect classifies a file by name and content. It never fails: name-based
// lookup first, magic-byte sniffing second, and a UTF-8 probe last. Files that
// resist all three come back as application/octet-stream.
func Detect(filename string, content []byte) (mimeType, ext string) {
	ext = strings.ToLower(filepath.Ext(filename))
	mimeType = extensionMIME[ext]
	if mimeType != "" {
		return mimeType, ext
	}

	switch {
	case bytes.HasPrefix(content, sigPDF):
		return MimePDF, ".pdf"
	case bytes.HasPrefix(content, sigZIP):
		// ZIP container: disambiguate by the claimed extension. An extensionless
		// ZIP stays unresolved, which is acceptable ambiguity, not an error.
		switch ext {
		case ".docx", ".doc":
			return MimeDocx, ext
		case ".xlsx", ".xls":
			return MimeXlsx, ext
		case ".pptx", ".ppt":
			return MimePptx, ext
		}
	case bytes.HasPrefix(content, sigOLE):
		switch ext {
		case ".doc":
			return MimeDoc, ext
		case ".xls":
			return MimeXls, ext
		case ".ppt":
			return MimePpt, ext
		}
	default:
		if utf8.Valid(content) {
			if ext == "" {
				ext = ".txt"
			}
			return MimeText, ext
		}
	}
	return MimeOctetStream, ext
}
