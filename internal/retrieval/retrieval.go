// Package retrieval answers text queries by embedding them and searching the
// vector index, reshaping raw matches into display-ready results.
package retrieval

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

// Service performs semantic search over ingested chunks.
type Service struct {
	embedder embedding.Embedder
	store    vectorstore.Store
	logger   *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a retrieval service over the given embedder and store.
func NewService(embedder embedding.Embedder, store vectorstore.Store, opts ...ServiceOption) *Service {
	s := &Service{embedder: embedder, store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds the query and returns the most similar chunks from the
// request's namespace. Provider or index failures degrade to an empty result
// set: a chat turn should never hard-fail because retrieval hiccuped.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) ([]*models.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		s.logger.Warn("query embedding failed, returning no results",
			zap.String("query", req.Query), zap.Error(err))
		return []*models.QueryResult{}, nil
	}

	matches, err := s.store.Query(ctx, vector, req.TopK, req.Namespace, req.Filter)
	if err != nil {
		s.logger.Warn("vector query failed, returning no results",
			zap.String("namespace", req.Namespace), zap.Error(err))
		return []*models.QueryResult{}, nil
	}

	results := make([]*models.QueryResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, reshape(m))
	}
	s.logger.Debug("search complete",
		zap.String("query", req.Query),
		zap.String("namespace", req.Namespace),
		zap.Int("results", len(results)))
	return results, nil
}

// SearchResponse runs Search and wraps the results in an HTTP-shaped response
// with timing.
func (s *Service) SearchResponse(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	results, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.SearchResponse{
		Success:      true,
		Results:      results,
		TotalResults: len(results),
		Query:        req.Query,
		QueryTime:    time.Since(start).Milliseconds(),
	}, nil
}

// reshape turns a raw match into a QueryResult. Metadata written by older
// ingests may lack lineage fields, so every read has a defined default.
func reshape(m *models.Match) *models.QueryResult {
	content := metaString(m.Metadata, "content", "")
	return &models.QueryResult{
		ID:                 m.ID,
		Score:              m.Score,
		Title:              metaString(m.Metadata, "title", "Unknown"),
		Content:            content,
		Source:             metaString(m.Metadata, "source", "Unknown"),
		OriginalDocumentID: metaString(m.Metadata, "original_document_id", m.ID),
		ChunkIndex:         metaInt(m.Metadata, "chunk_index", 0),
		TotalChunks:        metaInt(m.Metadata, "total_chunks", 1),
		ChunkSize:          metaInt(m.Metadata, "chunk_size", utf8.RuneCountInString(content)),
		Metadata:           m.Metadata,
	}
}

func metaString(metadata map[string]interface{}, key, fallback string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return fallback
}

// metaInt reads a numeric metadata field. JSON decoding and store round-trips
// hand numbers back as float64 or string, so all three shapes are accepted.
func metaInt(metadata map[string]interface{}, key string, fallback int) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
