package catalog

import (
	"path/filepath"
	"testing"

	"github.com/docuchat/docuchat/internal/registry"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func seed(t *testing.T, c *Catalog) {
	t.Helper()
	records := []*registry.Record{
		{ID: "d1", Title: "Quarterly Revenue Report", Filename: "revenue.pdf", Tags: []string{"pdf"}, DocumentType: "pdf", Namespace: "finance"},
		{ID: "d2", Title: "Machine Learning Primer", Filename: "ml.docx", Tags: []string{"docx", "machine_learning"}, DocumentType: "word_document", Namespace: "research"},
		{ID: "d3", Title: "Revenue Projections", Filename: "projections.xlsx", Tags: []string{"xlsx"}, DocumentType: "spreadsheet", Namespace: "finance"},
	}
	for _, rec := range records {
		if err := c.Index(rec); err != nil {
			t.Fatalf("Index(%s): %v", rec.ID, err)
		}
	}
}

func TestCatalog_Search(t *testing.T) {
	c := newTestCatalog(t)
	seed(t, c)

	hits, err := c.Search("revenue", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits for revenue, got %d", len(hits))
	}
	for _, h := range hits {
		if h.ID != "d1" && h.ID != "d3" {
			t.Errorf("unexpected hit %q", h.ID)
		}
		if h.Score <= 0 {
			t.Errorf("hit %q has non-positive score", h.ID)
		}
	}
}

func TestCatalog_SearchNamespaceScoped(t *testing.T) {
	c := newTestCatalog(t)
	seed(t, c)

	hits, err := c.Search("revenue", "finance", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("finance revenue hits = %d, want 2", len(hits))
	}

	none, err := c.Search("revenue", "research", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("research should have no revenue docs, got %d", len(none))
	}
}

func TestCatalog_Delete(t *testing.T) {
	c := newTestCatalog(t)
	seed(t, c)

	if err := c.Delete("d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, _ := c.Search("revenue", "", 10)
	if len(hits) != 1 || hits[0].ID != "d3" {
		t.Errorf("hits after delete = %v", hits)
	}
}

func TestCatalog_IndexUpdates(t *testing.T) {
	c := newTestCatalog(t)
	rec := &registry.Record{ID: "d1", Title: "Old Title", Namespace: ""}
	c.Index(rec)
	rec.Title = "Completely Different"
	if err := c.Index(rec); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	old, _ := c.Search("old", "", 10)
	if len(old) != 0 {
		t.Errorf("stale title still matches: %v", old)
	}
	fresh, _ := c.Search("different", "", 10)
	if len(fresh) != 1 {
		t.Errorf("updated title not found: %v", fresh)
	}
}

func TestCatalog_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.bleve")
	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Index(&registry.Record{ID: "d1", Title: "Durable Notes"})
	c.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	hits, err := reopened.Search("durable", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected persisted doc, got %v", hits)
	}
}
