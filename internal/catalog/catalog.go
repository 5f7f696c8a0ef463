// Package catalog provides keyword lookup over ingested document records, so
// "what did I upload about X" works without a vector round trip.
package catalog

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/docuchat/docuchat/internal/registry"
)

// Hit is one catalog search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Catalog indexes ingest records by title, filename, tags, and type.
type Catalog struct {
	index bleve.Index
}

// entry is the indexed shape of a registry record.
type entry struct {
	Title        string   `json:"title"`
	Filename     string   `json:"filename"`
	Tags         []string `json:"tags"`
	DocumentType string   `json:"document_type"`
	Namespace    string   `json:"namespace"`
}

func indexMapping() *bleve.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so short lookups
	// match exact words.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("tags", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("document_type", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("namespace", keywordFieldMapping)
	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping
	return im
}

// New creates or opens a catalog index at path. An empty path builds an
// in-memory index.
func New(path string) (*Catalog, error) {
	im := indexMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory catalog: %w", err)
		}
		return &Catalog{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open catalog index: %w", openErr)
		}
		return &Catalog{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog index: %w", err)
	}
	return &Catalog{index: index}, nil
}

// Index adds or updates a record in the catalog.
func (c *Catalog) Index(rec *registry.Record) error {
	return c.index.Index(rec.ID, &entry{
		Title:        rec.Title,
		Filename:     rec.Filename,
		Tags:         rec.Tags,
		DocumentType: rec.DocumentType,
		Namespace:    rec.Namespace,
	})
}

// Delete removes a record from the catalog.
func (c *Catalog) Delete(id string) error {
	return c.index.Delete(id)
}

// Search runs a match query over titles, filenames, and tags, optionally
// restricted to one namespace.
func (c *Catalog) Search(query, namespace string, limit int) ([]*Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	mq := bleve.NewMatchQuery(query)
	var search *bleve.SearchRequest
	if namespace != "" {
		ns := bleve.NewTermQuery(namespace)
		ns.SetField("namespace")
		search = bleve.NewSearchRequest(bleve.NewConjunctionQuery(mq, ns))
	} else {
		search = bleve.NewSearchRequest(mq)
	}
	search.Size = limit

	results, err := c.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	hits := make([]*Hit, len(results.Hits))
	for i, hit := range results.Hits {
		hits[i] = &Hit{ID: hit.ID, Score: hit.Score}
	}
	return hits, nil
}

// Close closes the underlying index.
func (c *Catalog) Close() error {
	return c.index.Close()
}
