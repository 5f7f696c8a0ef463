package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docuchat/docuchat/internal/models"
)

// MemoryStore is an in-memory Store using brute-force inner product search.
// Suitable for tests and small datasets when no external index is available.
type MemoryStore struct {
	dimension  int
	namespaces map[string]map[string]*Vector
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store for vectors of the given dimension.
func NewMemoryStore(dimension int) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	return &MemoryStore{
		dimension:  dimension,
		namespaces: make(map[string]map[string]*Vector),
	}, nil
}

// Upsert inserts or overwrites vectors in the namespace.
func (m *MemoryStore) Upsert(ctx context.Context, vectors []*Vector, namespace string) error {
	for i, v := range vectors {
		if v == nil || v.ID == "" {
			return fmt.Errorf("vector %d is nil or has empty id", i)
		}
		if len(v.Values) != m.dimension {
			return fmt.Errorf("vector %q has %d dimensions, expected %d", v.ID, len(v.Values), m.dimension)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]*Vector)
		m.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		values := make([]float32, m.dimension)
		copy(values, v.Values)
		ns[v.ID] = &Vector{ID: v.ID, Values: values, Metadata: SanitizeMetadata(v.Metadata)}
	}
	return nil
}

// Query returns the topK vectors in the namespace by inner product (cosine
// similarity for normalized vectors). Only the named namespace is searched;
// namespace "" searches only vectors stored without a namespace.
func (m *MemoryStore) Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]interface{}) ([]*models.Match, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector has %d dimensions, expected %d", len(vector), m.dimension)
	}
	if topK <= 0 {
		topK = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}
	matches := make([]*models.Match, 0, len(ns))
	for _, v := range ns {
		if !matchesFilter(v.Metadata, filter) {
			continue
		}
		var dot float64
		for i := 0; i < m.dimension; i++ {
			dot += float64(vector[i] * v.Values[i])
		}
		matches = append(matches, &models.Match{ID: v.ID, Score: dot, Metadata: v.Metadata})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

// matchesFilter applies a minimal metadata predicate: scalar values mean
// equality, and a {"$in": [...]} map means set membership.
func matchesFilter(metadata, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		switch cond := want.(type) {
		case map[string]interface{}:
			in, ok := cond["$in"].([]interface{})
			if !ok {
				return false
			}
			found := false
			for _, candidate := range in {
				if fmt.Sprintf("%v", got) == fmt.Sprintf("%v", candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
				return false
			}
		}
	}
	return true
}

// Delete removes vectors by ID from the namespace. An empty id list is a
// caller error, not a no-op.
func (m *MemoryStore) Delete(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// ClearNamespace drops every vector in the namespace. The empty namespace is
// rejected, matching the behavior of the real store.
func (m *MemoryStore) ClearNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("refusing to clear the empty namespace")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// Stats reports vector counts across namespaces, or for one namespace.
func (m *MemoryStore) Stats(ctx context.Context, namespace string) (*models.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if namespace != "" {
		return &models.IndexStats{
			TotalVectorCount: int64(len(m.namespaces[namespace])),
			Namespace:        namespace,
		}, nil
	}
	stats := &models.IndexStats{
		Dimension:  m.dimension,
		Namespaces: make(map[string]int64, len(m.namespaces)),
	}
	for ns, vectors := range m.namespaces {
		stats.Namespaces[ns] = int64(len(vectors))
		stats.TotalVectorCount += int64(len(vectors))
	}
	return stats, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
