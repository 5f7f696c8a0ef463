// Package metadata derives canonical document records from extracted text and
// upload context.
package metadata

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/docuchat/docuchat/internal/models"
)

// Generator builds Document records for uploaded files. It never fails:
// every call produces a complete record with defined defaults.
type Generator struct {
	classifier Classifier
	now        func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c Classifier) GeneratorOption {
	return func(g *Generator) { g.classifier = c }
}

// WithClock replaces the time source (for tests).
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator returns a Generator with the default keyword classifier.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		classifier: NewKeywordClassifier(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a Document from a file's name, extracted text, MIME type,
// byte size, and target namespace. The ID is freshly generated; the title is
// the filename stem; tags start with the lowercase extension followed by
// classifier tags in order.
func (g *Generator) Generate(filename, content, mimeType string, fileSize int64, namespace string) *models.Document {
	createdAt := g.now().UTC().Format(time.RFC3339)

	var tags []string
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext != "" {
		tags = append(tags, ext)
	}
	tags = append(tags, g.classifier.Classify(content)...)

	return &models.Document{
		ID:           uuid.New().String(),
		Title:        titleFromFilename(filename),
		Content:      content,
		Source:       "file_upload",
		DocumentType: documentType(mimeType),
		CreatedAt:    createdAt,
		Tags:         tags,
		Namespace:    namespace,
		Filename:     filename,
		MimeType:     mimeType,
		FileSize:     fileSize,
		WordCount:    len(strings.Fields(content)),
		CharCount:    utf8.RuneCountInString(content),
	}
}

// titleFromFilename returns the filename with its extension stripped.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// documentType maps a MIME type to a coarse document class by substring
// matching in priority order.
func documentType(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "pdf"):
		return "pdf"
	case strings.Contains(mimeType, "word"):
		return "word_document"
	case strings.Contains(mimeType, "spreadsheet"):
		return "spreadsheet"
	case strings.Contains(mimeType, "presentation"):
		return "presentation"
	case strings.Contains(mimeType, "text"):
		return "text_file"
	default:
		return "document"
	}
}
