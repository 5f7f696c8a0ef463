package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	r, err := NewSQLiteRegistry(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRegistry: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func rec(id, namespace string, chunks int) *Record {
	return &Record{
		ID:           id,
		Title:        "Doc " + id,
		Source:       "file_upload",
		DocumentType: "pdf",
		Namespace:    namespace,
		Filename:     id + ".pdf",
		Tags:         []string{"pdf", "report"},
		ChunkCount:   chunks,
		WordCount:    100,
		CharCount:    600,
		FileSize:     2048,
	}
}

func TestSQLiteRegistry_SaveAndGet(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.Save(ctx, rec("doc1", "ns1", 3)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := r.Get(ctx, "doc1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Doc doc1" || got.ChunkCount != 3 || got.Namespace != "ns1" {
		t.Errorf("record = %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "pdf" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}

	if _, err := r.Get(ctx, "missing"); err == nil {
		t.Error("expected error for missing record")
	}
}

func TestSQLiteRegistry_SaveReplaces(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.Save(ctx, rec("doc1", "ns1", 3))
	updated := rec("doc1", "ns1", 7)
	if err := r.Save(ctx, updated); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := r.Get(ctx, "doc1")
	if got.ChunkCount != 7 {
		t.Errorf("ChunkCount = %d, want 7", got.ChunkCount)
	}
	n, _ := r.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestSQLiteRegistry_ListByNamespace(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		record := rec(id, "ns1", 1)
		record.CreatedAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		r.Save(ctx, record)
	}
	other := rec("d", "ns2", 1)
	r.Save(ctx, other)

	recs, err := r.List(ctx, "ns1", 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records in ns1, got %d", len(recs))
	}
	// Newest first.
	if recs[0].ID != "c" || recs[2].ID != "a" {
		t.Errorf("order = [%s, %s, %s]", recs[0].ID, recs[1].ID, recs[2].ID)
	}

	all, _ := r.List(ctx, "", 0, 10)
	if len(all) != 4 {
		t.Errorf("expected 4 records total, got %d", len(all))
	}

	page, _ := r.List(ctx, "ns1", 1, 1)
	if len(page) != 1 || page[0].ID != "b" {
		t.Errorf("pagination: %v", page)
	}
}

func TestSQLiteRegistry_Delete(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.Save(ctx, rec("doc1", "", 1))
	if err := r.Delete(ctx, "doc1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, "doc1"); err == nil {
		t.Error("record should be gone")
	}
	// Deleting a missing record is not an error.
	if err := r.Delete(ctx, "doc1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestSQLiteRegistry_DeleteNamespace(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	r.Save(ctx, rec("a", "ns1", 2))
	r.Save(ctx, rec("b", "ns1", 3))
	r.Save(ctx, rec("c", "ns2", 1))

	deleted, err := r.DeleteNamespace(ctx, "ns1")
	if err != nil {
		t.Fatalf("DeleteNamespace: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("expected 2 deleted records, got %d", len(deleted))
	}
	n, _ := r.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if _, err := r.DeleteNamespace(ctx, ""); err == nil {
		t.Error("empty namespace must be refused")
	}
}

func TestSQLiteRegistry_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")
	ctx := context.Background()

	r, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.Save(ctx, rec("doc1", "ns", 5))
	r.Close()

	r2, err := NewSQLiteRegistry(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()
	got, err := r2.Get(ctx, "doc1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.ChunkCount != 5 {
		t.Errorf("ChunkCount = %d", got.ChunkCount)
	}
}
