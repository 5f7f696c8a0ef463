// Package vectorstore manages namespaced vector persistence and similarity
// search behind a provider-agnostic interface.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/docuchat/docuchat/internal/models"
)

// Vector is one embedded record destined for the index.
type Vector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Store is a namespaced vector index. The empty namespace is a real scope (the
// unscoped pool), not a wildcard: operations with namespace "" touch only
// vectors stored without a namespace.
type Store interface {
	// Upsert inserts or overwrites vectors in the given namespace.
	Upsert(ctx context.Context, vectors []*Vector, namespace string) error
	// Query returns the topK nearest vectors in the namespace, optionally
	// restricted by a metadata filter.
	Query(ctx context.Context, vector []float32, topK int, namespace string, filter map[string]interface{}) ([]*models.Match, error)
	// Delete removes vectors by ID from the namespace.
	Delete(ctx context.Context, ids []string, namespace string) error
	// ClearNamespace deletes every vector in the namespace. It refuses the
	// empty namespace so a missing parameter cannot wipe the unscoped pool.
	ClearNamespace(ctx context.Context, namespace string) error
	// Stats reports vector counts, for the whole index or one namespace.
	Stats(ctx context.Context, namespace string) (*models.IndexStats, error)
	Close() error
}

// SanitizeMetadata reduces metadata to what vector stores accept: strings,
// numbers, booleans, and lists of strings. Lists have each element
// stringified; any other value is replaced by its string form. Nil values are
// dropped. Sanitizing already-sanitized metadata is a no-op.
func SanitizeMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}
	clean := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			clean[k] = val
		case []string:
			clean[k] = val
		case []interface{}:
			strs := make([]string, len(val))
			for i, item := range val {
				if s, ok := item.(string); ok {
					strs[i] = s
				} else {
					strs[i] = fmt.Sprintf("%v", item)
				}
			}
			clean[k] = strs
		default:
			clean[k] = fmt.Sprintf("%v", val)
		}
	}
	return clean
}
