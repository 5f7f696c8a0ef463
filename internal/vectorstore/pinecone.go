package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/models"
)

const (
	defaultControlURL = "https://api.pinecone.io"
	upsertBatchSize   = 100
)

// PineconeStore talks to a Pinecone serverless index over its REST API. The
// constructor verifies the index exists (creating it if missing) and resolves
// the index's data-plane host.
type PineconeStore struct {
	apiKey     string
	controlURL string
	indexName  string
	dimension  int
	metric     string
	cloud      string
	region     string
	host       string
	httpClient *http.Client
	logger     *zap.Logger
}

// PineconeOption configures a PineconeStore.
type PineconeOption func(*PineconeStore)

// WithControlURL overrides the control-plane URL (for tests).
func WithControlURL(url string) PineconeOption {
	return func(s *PineconeStore) { s.controlURL = strings.TrimRight(url, "/") }
}

// WithDataHost pins the data-plane host, skipping control-plane discovery.
func WithDataHost(host string) PineconeOption {
	return func(s *PineconeStore) { s.host = strings.TrimRight(host, "/") }
}

// WithPineconeHTTPClient overrides the HTTP client.
func WithPineconeHTTPClient(c *http.Client) PineconeOption {
	return func(s *PineconeStore) { s.httpClient = c }
}

// WithPineconeLogger sets a logger.
func WithPineconeLogger(l *zap.Logger) PineconeOption {
	return func(s *PineconeStore) { s.logger = l }
}

// WithServerless sets the serverless cloud and region used when the index has
// to be created.
func WithServerless(cloud, region string) PineconeOption {
	return func(s *PineconeStore) {
		s.cloud = cloud
		s.region = region
	}
}

// NewPineconeStore connects to the named index, creating it with the given
// dimension and metric when it does not exist yet.
func NewPineconeStore(ctx context.Context, apiKey, indexName string, dimension int, metric string, opts ...PineconeOption) (*PineconeStore, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	if indexName == "" {
		return nil, fmt.Errorf("pinecone index name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}
	if metric == "" {
		metric = "dotproduct"
	}
	s := &PineconeStore{
		apiKey:     apiKey,
		controlURL: defaultControlURL,
		indexName:  indexName,
		dimension:  dimension,
		metric:     metric,
		cloud:      "aws",
		region:     "us-east-1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == "" {
		if err := s.ensureIndex(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// ensureIndex creates the index when missing and records its data-plane host.
// A concurrent creation racing us is fine: 409 means someone else won.
func (s *PineconeStore) ensureIndex(ctx context.Context) error {
	desc, err := s.describeIndex(ctx)
	if err == nil {
		s.host = strings.TrimRight(desc.Host, "/")
		return nil
	}

	createBody := map[string]interface{}{
		"name":      s.indexName,
		"dimension": s.dimension,
		"metric":    s.metric,
		"spec": map[string]interface{}{
			"serverless": map[string]interface{}{
				"cloud":  s.cloud,
				"region": s.region,
			},
		},
	}
	status, _, cerr := s.doJSON(ctx, http.MethodPost, s.controlURL+"/indexes", createBody)
	if cerr != nil {
		return fmt.Errorf("create index %q: %w", s.indexName, cerr)
	}
	if status != http.StatusCreated && status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("create index %q: unexpected status %d", s.indexName, status)
	}
	if s.logger != nil && status != http.StatusConflict {
		s.logger.Info("created vector index", zap.String("index", s.indexName), zap.Int("dimension", s.dimension))
	}

	desc, err = s.describeIndex(ctx)
	if err != nil {
		return fmt.Errorf("describe index %q after create: %w", s.indexName, err)
	}
	s.host = strings.TrimRight(desc.Host, "/")
	return nil
}

func (s *PineconeStore) describeIndex(ctx context.Context) (*indexDescription, error) {
	status, body, err := s.doJSON(ctx, http.MethodGet, s.controlURL+"/indexes/"+s.indexName, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("index %q not found (status %d)", s.indexName, status)
	}
	var desc indexDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decode index description: %w", err)
	}
	if desc.Host == "" {
		return nil, fmt.Errorf("index %q description has no host", s.indexName)
	}
	return &desc, nil
}

// dataURL builds a data-plane URL. The host may or may not carry a scheme
// depending on where it came from.
func (s *PineconeStore) dataURL(path string) string {
	host := s.host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path
}

// Upsert writes vectors to the namespace in batches. Vectors are validated
// against the index dimension before anything goes over the wire. When some
// batches fail mid-way the successful ones stay written; the returned error
// says how many records made it.
func (s *PineconeStore) Upsert(ctx context.Context, vectors []*Vector, namespace string) error {
	if len(vectors) == 0 {
		return nil
	}
	for i, v := range vectors {
		if v == nil {
			return fmt.Errorf("vector %d is nil", i)
		}
		if v.ID == "" {
			return fmt.Errorf("vector %d has empty id", i)
		}
		if len(v.Values) != s.dimension {
			return fmt.Errorf("vector %q has %d dimensions, index expects %d", v.ID, len(v.Values), s.dimension)
		}
	}

	upserted := 0
	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		batch := vectors[start:end]
		body := map[string]interface{}{
			"vectors":   batch,
			"namespace": namespace,
		}
		status, data, err := s.doJSON(ctx, http.MethodPost, s.dataURL("/vectors/upsert"), body)
		if err == nil && status != http.StatusOK {
			err = fmt.Errorf("upsert status %d: %s", status, strings.TrimSpace(string(data)))
		}
		if err != nil {
			return fmt.Errorf("upsert failed after %d of %d vectors: %w", upserted, len(vectors), err)
		}
		upserted += len(batch)
		if s.logger != nil {
			s.logger.Debug("upserted vector batch",
				zap.Int("batch_size", len(batch)),
				zap.Int("total", upserted),
				zap.String("namespace", namespace))
		}
	}
	return nil
}

type queryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest matches in the namespace with their metadata.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]interface{}) ([]*models.Match, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 10
	}
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"namespace":       namespace,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	status, data, err := s.doJSON(ctx, http.MethodPost, s.dataURL("/query"), body)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("query status %d: %s", status, strings.TrimSpace(string(data)))
	}
	var out queryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	matches := make([]*models.Match, 0, len(out.Matches))
	for _, m := range out.Matches {
		matches = append(matches, &models.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// Delete removes the given vector IDs from the namespace. An empty id list is
// rejected before any request goes out.
func (s *PineconeStore) Delete(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids cannot be empty")
	}
	body := map[string]interface{}{
		"ids":       ids,
		"namespace": namespace,
	}
	status, data, err := s.doJSON(ctx, http.MethodPost, s.dataURL("/vectors/delete"), body)
	if err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete vectors status %d: %s", status, strings.TrimSpace(string(data)))
	}
	return nil
}

// ClearNamespace deletes every vector in the namespace. The empty namespace is
// rejected: wiping the unscoped pool must be a deliberate, separate act.
func (s *PineconeStore) ClearNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("refusing to clear the empty namespace")
	}
	body := map[string]interface{}{
		"deleteAll": true,
		"namespace": namespace,
	}
	status, data, err := s.doJSON(ctx, http.MethodPost, s.dataURL("/vectors/delete"), body)
	if err != nil {
		return fmt.Errorf("clear namespace %q: %w", namespace, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("clear namespace %q status %d: %s", namespace, status, strings.TrimSpace(string(data)))
	}
	if s.logger != nil {
		s.logger.Info("cleared namespace", zap.String("namespace", namespace))
	}
	return nil
}

type statsResponse struct {
	Namespaces map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
	Dimension        int     `json:"dimension"`
	IndexFullness    float64 `json:"indexFullness"`
	TotalVectorCount int64   `json:"totalVectorCount"`
}

// Stats reports index-wide statistics, or just the vector count of one
// namespace when namespace is non-empty.
func (s *PineconeStore) Stats(ctx context.Context, namespace string) (*models.IndexStats, error) {
	status, data, err := s.doJSON(ctx, http.MethodPost, s.dataURL("/describe_index_stats"), map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("index stats status %d: %s", status, strings.TrimSpace(string(data)))
	}
	var out statsResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode index stats: %w", err)
	}
	if namespace != "" {
		return &models.IndexStats{
			TotalVectorCount: out.Namespaces[namespace].VectorCount,
			Namespace:        namespace,
		}, nil
	}
	stats := &models.IndexStats{
		TotalVectorCount: out.TotalVectorCount,
		Dimension:        out.Dimension,
		IndexFullness:    out.IndexFullness,
		Namespaces:       make(map[string]int64, len(out.Namespaces)),
	}
	for ns, n := range out.Namespaces {
		stats.Namespaces[ns] = n.VectorCount
	}
	return stats, nil
}

// Close is a no-op; the store holds no persistent connections.
func (s *PineconeStore) Close() error {
	return nil
}

// doJSON sends an optionally-bodied request with the API key header and
// returns the status code and response body.
func (s *PineconeStore) doJSON(ctx context.Context, method, url string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
