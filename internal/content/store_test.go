package content

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_UpsertAssignsStableID(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := &Document{Source: SourceGitHub, Content: "# week 1", URL: "https://example.com/w1.md", Title: "w1.md"}
	id1, err := s.Upsert(ctx, doc)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Re-ingesting the same (source, url) must update in place, not duplicate.
	doc2 := &Document{Source: SourceGitHub, Content: "# week 1 (revised)", URL: "https://example.com/w1.md", Title: "w1.md", Embedding: []float32{1, 0}}
	id2, err := s.Upsert(ctx, doc2)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("id changed across re-ingestion: %d != %d", id1, id2)
	}

	docs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("want 1 document after re-ingestion, got %d", len(docs))
	}
	if docs[0].Content != "# week 1 (revised)" {
		t.Errorf("content not updated: %q", docs[0].Content)
	}
	if !docs[0].Embedded() {
		t.Errorf("embedding not stored on update")
	}
}

func Test_Store_SameURLDifferentSourceIsSeparate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, src := range []Source{SourceGitHub, SourceDiscourse} {
		if _, err := s.Upsert(ctx, &Document{Source: src, Content: "x", URL: "https://example.com/dup", Title: "dup"}); err != nil {
			t.Fatalf("upsert %s: %v", src, err)
		}
	}

	docs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("want 2 documents (one per source), got %d", len(docs))
	}
}

func Test_Store_AllPreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	urls := []string{"https://e/1", "https://e/2", "https://e/3"}
	for _, u := range urls {
		if _, err := s.Upsert(ctx, &Document{Source: SourceGitHub, Content: "c", URL: u, Title: "t"}); err != nil {
			t.Fatalf("upsert %s: %v", u, err)
		}
	}

	docs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	for i, want := range urls {
		if docs[i].URL != want {
			t.Errorf("docs[%d]: want %q, got %q", i, want, docs[i].URL)
		}
	}
}

func Test_Store_EmbeddingRoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	vec := []float32{0.25, -1.5, 3.0}
	if _, err := s.Upsert(ctx, &Document{Source: SourceDiscourse, Content: "post", URL: "https://e/t/1/1", Title: "topic", Embedding: vec}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	docs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	got := docs[0].Embedding
	if len(got) != len(vec) {
		t.Fatalf("want %d dims, got %d", len(vec), len(got))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("dim %d: want %v, got %v", i, vec[i], got[i])
		}
	}
}

func Test_Store_MissingEmbeddingAndUpdate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, &Document{Source: SourceGitHub, Content: "a", URL: "https://e/a", Title: "a", Embedding: []float32{1}}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	bare := &Document{Source: SourceGitHub, Content: "b", URL: "https://e/b", Title: "b"}
	id, err := s.Upsert(ctx, bare)
	if err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	missing, err := s.MissingEmbedding(ctx)
	if err != nil {
		t.Fatalf("missing: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != id {
		t.Fatalf("want only doc b missing an embedding, got %v", missing)
	}

	if err := s.UpdateEmbedding(ctx, id, []float32{2}); err != nil {
		t.Fatalf("update embedding: %v", err)
	}
	missing, err = s.MissingEmbedding(ctx)
	if err != nil {
		t.Fatalf("missing after update: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("want 0 missing after update, got %d", len(missing))
	}

	total, embedded, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 || embedded != 2 {
		t.Errorf("count: want 2/2, got %d/%d", total, embedded)
	}
}

func Test_Store_UpdateEmbeddingUnknownID(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.UpdateEmbedding(context.Background(), 42, []float32{1}); err == nil {
		t.Fatal("want error for unknown id, got nil")
	}
}

func Test_DecodeEmbedding_RejectsTruncatedBlob(t *testing.T) {
	t.Parallel()

	if _, err := decodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Fatal("want error for blob with length not a multiple of 4, got nil")
	}
	vec, err := decodeEmbedding(nil)
	if err != nil || vec != nil {
		t.Fatalf("nil blob: want nil/nil, got %v/%v", vec, err)
	}
}
