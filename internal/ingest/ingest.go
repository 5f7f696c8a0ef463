// Package ingest runs the document pipeline: detect, extract, describe,
// chunk, embed, and index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/chunker"
	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/extract"
	"github.com/docuchat/docuchat/internal/filetype"
	"github.com/docuchat/docuchat/internal/metadata"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/registry"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

const defaultEmbedBatch = 100

// providerError marks a failure of an external provider call (embedding or
// vector index), as opposed to a validation failure of the input itself.
type providerError struct{ err error }

func (e *providerError) Error() string { return e.err.Error() }
func (e *providerError) Unwrap() error { return e.err }

// IsProviderFailure reports whether err stems from an external provider call
// rather than from invalid input.
func IsProviderFailure(err error) bool {
	var pe *providerError
	return errors.As(err, &pe)
}

// Options control one ingest call.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// Namespace scopes the ingested chunks; empty means the unscoped pool.
	Namespace string
}

// applyDefaults fills in absent (zero) values only. Explicitly invalid
// combinations like overlap >= size are left alone for the chunker to reject,
// rather than silently chunking differently than the caller asked.
func (o *Options) applyDefaults() {
	if o.ChunkSize == 0 {
		o.ChunkSize = 1000
	}
	if o.ChunkOverlap == 0 {
		o.ChunkOverlap = o.ChunkSize / 5
	}
}

// Pipeline wires the ingest stages together.
type Pipeline struct {
	extractor  *extract.Extractor
	generator  *metadata.Generator
	embedder   embedding.Embedder
	store      vectorstore.Store
	registry   registry.Registry
	logger     *zap.Logger
	embedBatch int
	maxFileMB  int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithEmbedBatchSize caps how many chunks go into one embedding call.
func WithEmbedBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.embedBatch = n
		}
	}
}

// WithMaxFileMB caps the accepted upload size in megabytes.
func WithMaxFileMB(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxFileMB = n
		}
	}
}

// NewPipeline creates an ingest pipeline. The registry may be nil, in which
// case no provenance is recorded and per-document deletion is unavailable.
func NewPipeline(embedder embedding.Embedder, store vectorstore.Store, reg registry.Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor:  extract.NewExtractor(),
		generator:  metadata.NewGenerator(),
		embedder:   embedder,
		store:      store,
		registry:   reg,
		logger:     zap.NewNop(),
		embedBatch: defaultEmbedBatch,
		maxFileMB:  50,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestDocument ingests a caller-assembled document payload.
func (p *Pipeline) IngestDocument(ctx context.Context, input *models.DocumentInput, opts Options) (*models.IngestResult, error) {
	if input == nil || input.Content == "" {
		return nil, fmt.Errorf("document content cannot be empty")
	}
	opts.applyDefaults()

	doc := &models.Document{
		ID:           input.ID,
		Title:        input.Title,
		Content:      input.Content,
		Source:       input.Source,
		Author:       input.Author,
		DocumentType: "document",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Tags:         input.Tags,
		Namespace:    opts.Namespace,
		WordCount:    wordCount(input.Content),
		CharCount:    utf8.RuneCountInString(input.Content),
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Title == "" {
		doc.Title = "Untitled"
	}
	if doc.Source == "" {
		doc.Source = "api"
	}
	return p.ingest(ctx, doc, opts)
}

// IngestFile validates an uploaded file, extracts its text, and ingests it.
// Extraction is best effort: unreadable files are ingested with a placeholder
// body so the upload still shows up in listings and search.
func (p *Pipeline) IngestFile(ctx context.Context, filename string, content []byte, opts Options) (*models.IngestResult, error) {
	if err := ValidateUpload(filename, content, p.maxFileMB); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	mimeType, _ := filetype.Detect(filename, content)
	res := p.extractor.Extract(content, mimeType, filename)
	if res.Degraded {
		p.logger.Warn("extraction degraded",
			zap.String("filename", filename),
			zap.String("mime_type", mimeType),
			zap.String("reason", res.Reason),
			zap.Error(res.Err))
	}

	doc := p.generator.Generate(filename, res.Text, mimeType, int64(len(content)), opts.Namespace)
	return p.ingest(ctx, doc, opts)
}

// ingest chunks, embeds, and indexes a document, then records it.
func (p *Pipeline) ingest(ctx context.Context, doc *models.Document, opts Options) (*models.IngestResult, error) {
	ch, err := chunker.New(opts.ChunkSize, opts.ChunkOverlap, chunker.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	chunks := ch.Chunk(doc)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %q produced no chunks", doc.ID)
	}

	for start := 0; start < len(chunks); start += p.embedBatch {
		end := start + p.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d of %q: %w", start, end-1, doc.ID, &providerError{err})
		}
		vectors := make([]*vectorstore.Vector, len(batch))
		for i, c := range batch {
			vectors[i] = &vectorstore.Vector{
				ID:       c.ID,
				Values:   vecs[i],
				Metadata: vectorstore.SanitizeMetadata(c.Metadata()),
			}
		}
		if err := p.store.Upsert(ctx, vectors, opts.Namespace); err != nil {
			return nil, fmt.Errorf("index chunks of %q: %w", doc.ID, &providerError{err})
		}
	}

	if p.registry != nil {
		rec := &registry.Record{
			ID:           doc.ID,
			Title:        doc.Title,
			Source:       doc.Source,
			DocumentType: doc.DocumentType,
			Namespace:    doc.Namespace,
			Filename:     doc.Filename,
			Tags:         doc.Tags,
			ChunkCount:   len(chunks),
			WordCount:    doc.WordCount,
			CharCount:    doc.CharCount,
			FileSize:     doc.FileSize,
		}
		if err := p.registry.Save(ctx, rec); err != nil {
			// The chunks are already searchable; a registry failure only
			// degrades listings and deletes.
			p.logger.Warn("failed to record ingest", zap.String("id", doc.ID), zap.Error(err))
		}
	}

	p.logger.Info("document ingested",
		zap.String("id", doc.ID),
		zap.String("title", doc.Title),
		zap.String("namespace", doc.Namespace),
		zap.Int("chunks", len(chunks)))

	return &models.IngestResult{
		Success:     true,
		Message:     fmt.Sprintf("Document ingested as %d chunks", len(chunks)),
		DocumentIDs: []string{doc.ID},
		ChunkCount:  len(chunks),
	}, nil
}

// DeleteDocument removes all chunks of a document from the vector index and
// drops its registry record. Chunk ids are reconstructed from the recorded
// chunk count.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) error {
	if p.registry == nil {
		return fmt.Errorf("no registry configured, cannot resolve chunk ids for %q", id)
	}
	rec, err := p.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	ids := make([]string, rec.ChunkCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s_chunk_%d", id, i)
	}
	if err := p.store.Delete(ctx, ids, rec.Namespace); err != nil {
		return fmt.Errorf("delete chunks of %q: %w", id, err)
	}
	if err := p.registry.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record %q: %w", id, err)
	}
	p.logger.Info("document deleted", zap.String("id", id), zap.Int("chunks", rec.ChunkCount))
	return nil
}

// DeleteChunks removes explicit chunk ids from a namespace.
func (p *Pipeline) DeleteChunks(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids cannot be empty")
	}
	return p.store.Delete(ctx, ids, namespace)
}

// ClearNamespace wipes a namespace from both the index and the registry.
func (p *Pipeline) ClearNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if err := p.store.ClearNamespace(ctx, namespace); err != nil {
		return err
	}
	if p.registry != nil {
		if _, err := p.registry.DeleteNamespace(ctx, namespace); err != nil {
			p.logger.Warn("failed to clear registry namespace", zap.String("namespace", namespace), zap.Error(err))
		}
	}
	return nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
