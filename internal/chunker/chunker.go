// Package chunker splits document content into ordered, overlapping,
// position-aware chunks for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/models"
)

// separators are candidate chunk boundaries from coarsest to finest. The empty
// string means a forced character-level cut.
var separators = []string{"\n\n", "\n", " "}

// Chunker splits text into overlapping character-based chunks, preferring to
// break at paragraph, line, or word boundaries.
type Chunker struct {
	size    int
	overlap int
	logger  *zap.Logger
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithLogger sets a logger for per-document batch diagnostics.
func WithLogger(l *zap.Logger) ChunkerOption {
	return func(c *Chunker) { c.logger = l }
}

// New creates a chunker with the given size and overlap (in characters).
// Overlap must be smaller than size; anything else is a configuration error
// that would stall the splitter, so it is rejected up front.
func New(size, overlap int, opts ...ChunkerOption) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}
	c := &Chunker{size: size, overlap: overlap}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chunk splits doc's content into Chunks stamped with lineage metadata.
// Empty content yields an empty slice, not an error. The split is
// deterministic: identical content and settings always produce identical
// chunk sequences and ids.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	if doc == nil || doc.Content == "" {
		return nil
	}
	pieces := c.split(doc.Content)
	chunks := make([]*models.Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = &models.Chunk{
			ID:                 fmt.Sprintf("%s_chunk_%d", doc.ID, i),
			Content:            text,
			OriginalDocumentID: doc.ID,
			ChunkIndex:         i,
			TotalChunks:        len(pieces),
			ChunkSize:          utf8.RuneCountInString(text),
			Title:              doc.Title,
			Source:             doc.Source,
			Author:             doc.Author,
			CreatedAt:          doc.CreatedAt,
			DocumentType:       doc.DocumentType,
			Tags:               append([]string(nil), doc.Tags...),
		}
	}
	return chunks
}

// ChunkBatch chunks multiple documents independently and concatenates the
// results. A document that cannot be chunked is logged and skipped; it never
// aborts the rest of the batch.
func (c *Chunker) ChunkBatch(docs []*models.Document) []*models.Chunk {
	var all []*models.Chunk
	for i, doc := range docs {
		if doc == nil {
			if c.logger != nil {
				c.logger.Warn("skipping nil document in chunk batch", zap.Int("position", i))
			}
			continue
		}
		chunks := c.Chunk(doc)
		if len(chunks) == 0 && c.logger != nil {
			c.logger.Warn("document produced no chunks", zap.String("id", doc.ID))
		}
		all = append(all, chunks...)
	}
	return all
}

// split performs the greedy boundary-seeking split. Each chunk accumulates up
// to size characters and prefers to end at the latest occurrence of the
// coarsest separator that fits (the separator stays at the chunk tail). When
// no separator fits, the cut lands at exactly size characters. The next chunk
// starts overlap characters before the previous end; the overlap is measured
// in raw characters from the cut, never re-aligned to a separator, so chunk
// boundaries are reproducible.
//
// Size and overlap count runes, not bytes: a cut or rewind must never land
// inside a multi-byte character, which would leave chunks of invalid UTF-8.
func (c *Chunker) split(content string) []string {
	runes := []rune(content)
	if len(runes) <= c.size {
		return []string{content}
	}
	var pieces []string
	pos := 0
	for pos < len(runes) {
		end := pos + c.size
		if end >= len(runes) {
			pieces = append(pieces, string(runes[pos:]))
			break
		}
		cut := end
		window := string(runes[pos:end])
		for _, sep := range separators {
			// LastIndex returns a byte offset; the separators are ASCII, so
			// only the prefix before it needs rune counting.
			if idx := strings.LastIndex(window, sep); idx > 0 {
				cut = pos + utf8.RuneCountInString(window[:idx]) + len(sep)
				break
			}
		}
		pieces = append(pieces, string(runes[pos:cut]))
		next := cut - c.overlap
		if next <= pos {
			// A chunk shorter than the overlap cannot rewind without
			// stalling; advance to the cut instead.
			next = cut
		}
		pos = next
	}
	return pieces
}
