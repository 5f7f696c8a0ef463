// Package registry records what was ingested: one row per document with its
// chunk count and descriptive metadata. Document text itself lives only in the
// vector index; the registry is the local source of truth for "what is in
// there" and for mapping a document back to its chunk ids on delete.
package registry

import (
	"context"
	"time"
)

// Record is the provenance entry for one ingested document.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	DocumentType string    `json:"document_type"`
	Namespace    string    `json:"namespace"`
	Filename     string    `json:"filename,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	ChunkCount   int       `json:"chunk_count"`
	WordCount    int       `json:"word_count"`
	CharCount    int       `json:"char_count"`
	FileSize     int64     `json:"file_size,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Registry persists ingest records.
type Registry interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns records newest first. A non-empty namespace restricts the
	// listing to that namespace.
	List(ctx context.Context, namespace string, offset, limit int) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	// DeleteNamespace removes all records in the namespace and returns them,
	// so callers can mirror the deletion into the vector index.
	DeleteNamespace(ctx context.Context, namespace string) ([]*Record, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
