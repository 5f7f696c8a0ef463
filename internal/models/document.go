// Package models defines core data structures for documents, chunks, and retrieval results.
package models

// Document is a logical unit of content before chunking. It is assembled at
// ingest time from a direct payload, pasted text, or extracted file content,
// and is never mutated afterwards. Only its chunks are persisted.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Source       string   `json:"source"`
	Author       string   `json:"author,omitempty"`
	DocumentType string   `json:"document_type"`
	CreatedAt    string   `json:"created_at"`
	Tags         []string `json:"tags,omitempty"`
	// Namespace classifies which retrieval scope the document belongs to.
	// Empty string means global/unscoped.
	Namespace string `json:"namespace,omitempty"`
	Filename  string `json:"filename,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
}

// Chunk is the atomic unit stored in and retrieved from the vector index.
// Its ID is deterministic: "<parent_document_id>_chunk_<index>".
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`

	// Lineage metadata.
	OriginalDocumentID string `json:"original_document_id"`
	ChunkIndex         int    `json:"chunk_index"`
	TotalChunks        int    `json:"total_chunks"`
	ChunkSize          int    `json:"chunk_size"`

	// Inherited from the parent document (copied, not referenced).
	Title        string   `json:"title"`
	Source       string   `json:"source"`
	Author       string   `json:"author,omitempty"`
	CreatedAt    string   `json:"created_at"`
	DocumentType string   `json:"document_type"`
	Tags         []string `json:"tags,omitempty"`
}

// Metadata returns the chunk as a flat metadata map for vector store persistence.
// Values are limited to scalars and string lists; the gateway sanitizes further.
func (c *Chunk) Metadata() map[string]interface{} {
	m := map[string]interface{}{
		"content":              c.Content,
		"original_document_id": c.OriginalDocumentID,
		"chunk_index":          c.ChunkIndex,
		"total_chunks":         c.TotalChunks,
		"chunk_size":           c.ChunkSize,
		"title":                c.Title,
		"source":               c.Source,
		"created_at":           c.CreatedAt,
		"document_type":        c.DocumentType,
	}
	if c.Author != "" {
		m["author"] = c.Author
	}
	if len(c.Tags) > 0 {
		m["tags"] = c.Tags
	}
	return m
}

// DocumentInput is a Document-shaped ingest payload (direct API path).
// Content is required; everything else has defined defaults.
type DocumentInput struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content"`
	Source  string   `json:"source,omitempty"`
	Author  string   `json:"author,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// IngestResult reports the outcome of an ingest call.
type IngestResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	ChunkCount  int      `json:"chunk_count"`
}
