// Package integration provides end-to-end tests over the full ingest and
// retrieval pipeline with on-disk storage.
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docuchat/docuchat/internal/catalog"
	"github.com/docuchat/docuchat/internal/embedding"
	"github.com/docuchat/docuchat/internal/ingest"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/registry"
	"github.com/docuchat/docuchat/internal/retrieval"
	"github.com/docuchat/docuchat/internal/vectorstore"
)

func TestIntegration_IngestAndRetrieve(t *testing.T) {
	dir := t.TempDir()

	store, err := vectorstore.NewMemoryStore(16)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	reg, err := registry.NewSQLiteRegistry(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	cat, err := catalog.New(filepath.Join(dir, "catalog.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	embedder := embedding.NewMockEmbedder(16)
	defer embedder.Close()

	pipeline := ingest.NewPipeline(embedder, store, reg)
	ret := retrieval.NewService(embedder, store)
	ctx := context.Background()

	// Long enough to split into several chunks.
	content := strings.Repeat("Machine learning models learn patterns from training data. ", 20)
	result, err := pipeline.IngestDocument(ctx, &models.DocumentInput{
		Title:   "ML Primer",
		Content: content,
		Tags:    []string{"notes"},
	}, ingest.Options{ChunkSize: 300, ChunkOverlap: 60, Namespace: "thread-7"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.ChunkCount < 2 {
		t.Fatalf("ingest result = %+v", result)
	}
	docID := result.DocumentIDs[0]

	rec, err := reg.Get(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Index(rec); err != nil {
		t.Fatal(err)
	}

	results, err := ret.Search(ctx, &models.SearchRequest{
		Query:     "machine learning training data",
		Namespace: "thread-7",
		TopK:      3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected retrieval results")
	}
	for _, r := range results {
		if r.OriginalDocumentID != docID {
			t.Errorf("result from unexpected document %q", r.OriginalDocumentID)
		}
		if r.TotalChunks != result.ChunkCount {
			t.Errorf("TotalChunks = %d, want %d", r.TotalChunks, result.ChunkCount)
		}
	}

	// Another namespace sees nothing.
	other, err := ret.Search(ctx, &models.SearchRequest{
		Query: "machine learning training data",
		TopK:  3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("unscoped pool returned %d results, want 0", len(other))
	}

	// Keyword catalog finds the record too.
	hits, err := cat.Search("primer", "thread-7", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != docID {
		t.Errorf("catalog hits = %+v", hits)
	}

	if err := pipeline.DeleteDocument(ctx, docID); err != nil {
		t.Fatal(err)
	}
	stats, err := store.Stats(ctx, "thread-7")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalVectorCount != 0 {
		t.Errorf("vectors remain after delete: %d", stats.TotalVectorCount)
	}
	if _, err := reg.Get(ctx, docID); err == nil {
		t.Error("registry record survived delete")
	}
}

func TestIntegration_ClearNamespace(t *testing.T) {
	dir := t.TempDir()

	store, err := vectorstore.NewMemoryStore(8)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	reg, err := registry.NewSQLiteRegistry(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	embedder := embedding.NewMockEmbedder(8)
	pipeline := ingest.NewPipeline(embedder, store, reg)
	ctx := context.Background()

	for _, ns := range []string{"scratch", "scratch", "keep"} {
		if _, err := pipeline.IngestDocument(ctx, &models.DocumentInput{
			Content: "content for " + ns,
		}, ingest.Options{Namespace: ns}); err != nil {
			t.Fatal(err)
		}
	}

	if err := pipeline.ClearNamespace(ctx, "scratch"); err != nil {
		t.Fatal(err)
	}
	if err := pipeline.ClearNamespace(ctx, ""); err == nil {
		t.Error("clearing the unscoped pool should be refused")
	}

	if recs, err := reg.List(ctx, "scratch", 0, 10); err != nil || len(recs) != 0 {
		t.Errorf("scratch records = %d, err %v", len(recs), err)
	}
	if recs, err := reg.List(ctx, "keep", 0, 10); err != nil || len(recs) != 1 {
		t.Errorf("keep records = %d, err %v", len(recs), err)
	}
	stats, err := store.Stats(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalVectorCount != 1 {
		t.Errorf("keep namespace vectors = %d, want 1", stats.TotalVectorCount)
	}
}
