package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docuchat/docuchat/internal/models"
)

func testDoc(id, content string) *models.Document {
	return &models.Document{
		ID:           id,
		Title:        "Test Doc",
		Content:      content,
		Source:       "test",
		DocumentType: "text_file",
		CreatedAt:    "2024-01-01T00:00:00Z",
		Tags:         []string{"txt"},
	}
}

// proseContent builds n characters of non-repeating prose with a paragraph
// break every four sentences (every 246 characters).
func proseContent(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		fmt.Fprintf(&b, "Sentence number %04d discusses topic %04d in moderate depth. ", i, i*i%9973)
		if i%4 == 3 {
			b.WriteString("\n\n")
		}
	}
	return b.String()[:n]
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 1000, 200, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
		{"negative overlap", 100, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestChunk_EmptyContent(t *testing.T) {
	c, _ := New(1000, 200)
	if chunks := c.Chunk(testDoc("d1", "")); chunks != nil {
		t.Errorf("empty content should yield nil, got %d chunks", len(chunks))
	}
	if chunks := c.Chunk(nil); chunks != nil {
		t.Error("nil document should yield nil")
	}
}

func TestChunk_SmallContentSingleChunk(t *testing.T) {
	c, _ := New(1000, 200)
	chunks := c.Chunk(testDoc("d1", "short content"))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.ID != "d1_chunk_0" {
		t.Errorf("ID = %q", ch.ID)
	}
	if ch.ChunkIndex != 0 || ch.TotalChunks != 1 {
		t.Errorf("lineage = (%d, %d)", ch.ChunkIndex, ch.TotalChunks)
	}
	if ch.ChunkSize != len("short content") {
		t.Errorf("ChunkSize = %d", ch.ChunkSize)
	}
}

func TestChunk_BasicScenario(t *testing.T) {
	// 2500 characters of prose with paragraph breaks, size 1000, overlap 200:
	// three chunks, the first two near 1000 characters, the last smaller.
	content := proseContent(2500)
	c, _ := New(1000, 200)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex = %d", i, ch.ChunkIndex)
		}
		if ch.TotalChunks != 3 {
			t.Errorf("chunk %d TotalChunks = %d, want 3", i, ch.TotalChunks)
		}
		if len(ch.Content) > 1000 {
			t.Errorf("chunk %d exceeds size: %d", i, len(ch.Content))
		}
		if ch.ID != fmt.Sprintf("doc_chunk_%d", i) {
			t.Errorf("chunk %d ID = %q", i, ch.ID)
		}
	}
	if len(chunks[0].Content) < 700 {
		t.Errorf("first chunk suspiciously small: %d", len(chunks[0].Content))
	}
	last := chunks[2]
	if len(last.Content) >= len(chunks[0].Content) {
		t.Errorf("last chunk should be the smallest: %d", len(last.Content))
	}
}

func TestChunk_Coverage(t *testing.T) {
	// Concatenating chunks in order, minus the overlap prefix of each
	// non-first chunk, must recover the original content exactly.
	content := proseContent(5000)
	c, _ := New(800, 150)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Every chunk here is longer than the overlap, so each non-first chunk
	// starts exactly 150 characters before its predecessor's end.
	var rebuilt strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			rebuilt.WriteString(ch.Content)
			continue
		}
		rebuilt.WriteString(ch.Content[150:])
	}
	if rebuilt.String() != content {
		t.Errorf("reconstruction mismatch: got %d chars, want %d", rebuilt.Len(), len(content))
	}
}

func TestChunk_OverlapBound(t *testing.T) {
	content := proseContent(3000)
	c, _ := New(1000, 200)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Content, chunks[i].Content
		// The head of each chunk must repeat the tail of its predecessor.
		shared := sharedBoundary(prev, cur)
		if shared == 0 {
			t.Errorf("chunks %d/%d share no boundary region", i-1, i)
		}
		if shared > 200 {
			t.Errorf("boundary region %d exceeds overlap 200", shared)
		}
	}
}

// sharedBoundary returns the length of the longest suffix of prev that is a
// prefix of cur.
func sharedBoundary(prev, cur string) int {
	max := len(prev)
	if len(cur) < max {
		max = len(cur)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(prev, cur[:n]) {
			return n
		}
	}
	return 0
}

func TestChunk_Determinism(t *testing.T) {
	content := proseContent(4200)
	c, _ := New(900, 180)
	first := c.Chunk(testDoc("doc", content))
	second := c.Chunk(testDoc("doc", content))
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Content != second[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_ForcedCutWithoutSeparators(t *testing.T) {
	// Content with no separators at all forces cuts at exactly the chunk size.
	content := strings.Repeat("x", 2500)
	c, _ := New(1000, 200)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Content) != 1000 {
		t.Errorf("forced cut should land at exactly 1000, got %d", len(chunks[0].Content))
	}
	if len(chunks[1].Content) != 1000 {
		t.Errorf("second chunk = %d, want 1000", len(chunks[1].Content))
	}
	// 2500 total, second chunk starts at 800, third at 1600: 900 remain.
	if len(chunks[2].Content) != 900 {
		t.Errorf("final chunk = %d, want 900", len(chunks[2].Content))
	}
}

func TestChunk_MultiByteForcedCut(t *testing.T) {
	// Separator-free CJK text: every rune is 3 bytes, so a byte-based cut
	// would land mid-character. Size and overlap count runes.
	content := strings.Repeat("文", 1200)
	c, _ := New(1000, 200)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Errorf("chunk %d content is invalid UTF-8", i)
		}
	}
	if n := utf8.RuneCountInString(chunks[0].Content); n != 1000 {
		t.Errorf("first chunk = %d runes, want 1000", n)
	}
	if chunks[0].ChunkSize != 1000 {
		t.Errorf("ChunkSize = %d, want 1000 runes", chunks[0].ChunkSize)
	}
	if n := utf8.RuneCountInString(chunks[1].Content); n != 400 {
		t.Errorf("second chunk = %d runes, want 400", n)
	}
}

func TestChunk_MultiByteOverlapRewind(t *testing.T) {
	// Accented words separated by spaces: cuts land on word boundaries, but
	// the overlap rewind must also step back whole runes, never split one.
	content := strings.TrimRight(strings.Repeat("déjà-vu café naïveté ", 100), " ")
	c, _ := New(300, 60)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	var rebuilt strings.Builder
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Content) {
			t.Fatalf("chunk %d content is invalid UTF-8", i)
		}
		if i == 0 {
			rebuilt.WriteString(ch.Content)
			continue
		}
		// Each chunk exceeds the overlap, so every non-first chunk starts
		// exactly 60 runes before its predecessor's end.
		rebuilt.WriteString(string([]rune(ch.Content)[60:]))
	}
	if rebuilt.String() != content {
		t.Errorf("reconstruction mismatch: got %d runes, want %d",
			utf8.RuneCountInString(rebuilt.String()), utf8.RuneCountInString(content))
	}
}

func TestChunk_InheritsMetadata(t *testing.T) {
	doc := testDoc("doc", proseContent(2500))
	doc.Author = "someone"
	c, _ := New(1000, 200)
	chunks := c.Chunk(doc)
	for i, ch := range chunks {
		if ch.Title != doc.Title || ch.Source != doc.Source || ch.Author != doc.Author ||
			ch.CreatedAt != doc.CreatedAt || ch.DocumentType != doc.DocumentType {
			t.Errorf("chunk %d did not inherit parent metadata", i)
		}
		if len(ch.Tags) != len(doc.Tags) {
			t.Errorf("chunk %d tags = %v", i, ch.Tags)
		}
		if ch.OriginalDocumentID != "doc" {
			t.Errorf("chunk %d OriginalDocumentID = %q", i, ch.OriginalDocumentID)
		}
	}
	// Tag slices are copies, not shared references.
	chunks[0].Tags[0] = "mutated"
	if doc.Tags[0] == "mutated" {
		t.Error("chunk tags must be copied from the parent, not aliased")
	}
}

func TestChunkBatch_IsolatesFailures(t *testing.T) {
	c, _ := New(1000, 200)
	docs := []*models.Document{
		testDoc("a", proseContent(1500)),
		nil,
		testDoc("b", ""),
		testDoc("c", "small"),
	}
	chunks := c.ChunkBatch(docs)
	// a yields 2, nil and empty yield 0, c yields 1.
	var aCount, cCount int
	for _, ch := range chunks {
		switch ch.OriginalDocumentID {
		case "a":
			aCount++
		case "c":
			cCount++
		}
	}
	if aCount < 2 || cCount != 1 {
		t.Errorf("batch chunks: a=%d c=%d total=%d", aCount, cCount, len(chunks))
	}
}

func TestChunk_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("a", 600)
	para2 := strings.Repeat("b", 600)
	content := para1 + "\n\n" + para2
	c, _ := New(1000, 100)
	chunks := c.Chunk(testDoc("doc", content))
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// The first cut should land right after the paragraph break, not at 1000.
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("first chunk should end at the paragraph boundary, got tail %q",
			chunks[0].Content[len(chunks[0].Content)-10:])
	}
	if len(chunks[0].Content) != 602 {
		t.Errorf("first chunk = %d chars, want 602", len(chunks[0].Content))
	}
}
