package models

import "fmt"

// SearchRequest is a retrieval request against the vector index.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	// Namespace scopes the search. Empty string searches the unscoped pool,
	// not "everything regardless of scope".
	Namespace string `json:"namespace,omitempty"`
	// Filter is a metadata equality/set predicate passed through to the
	// vector store untouched.
	Filter map[string]interface{} `json:"filter,omitempty"`
}

// Validate ensures the request has valid fields and sets defaults.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = 10
	}
	if r.TopK > 100 {
		r.TopK = 100
	}
	return nil
}

// Match is a raw vector store hit: id, relevance score, and stored metadata.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// QueryResult is a display-ready, lineage-annotated retrieval result.
type QueryResult struct {
	ID                 string                 `json:"id"`
	Score              float64                `json:"score"`
	Title              string                 `json:"title"`
	Content            string                 `json:"content"`
	Source             string                 `json:"source"`
	OriginalDocumentID string                 `json:"original_document_id"`
	ChunkIndex         int                    `json:"chunk_index"`
	TotalChunks        int                    `json:"total_chunks"`
	ChunkSize          int                    `json:"chunk_size"`
	Metadata           map[string]interface{} `json:"metadata"`
}

// SearchResponse is the HTTP response for a search request.
type SearchResponse struct {
	Success      bool           `json:"success"`
	Results      []*QueryResult `json:"results"`
	TotalResults int            `json:"total_results"`
	Query        string         `json:"query"`
	QueryTime    int64          `json:"query_time_ms"`
}

// IndexStats describes vector counts in the index.
type IndexStats struct {
	TotalVectorCount int64 `json:"total_vector_count"`
	// Namespace is set when stats were scoped to a single namespace.
	Namespace     string           `json:"namespace,omitempty"`
	Dimension     int              `json:"dimension,omitempty"`
	IndexFullness float64          `json:"index_fullness,omitempty"`
	Namespaces    map[string]int64 `json:"namespaces,omitempty"`
}
