package index

import (
	"context"
	"testing"

	"github.com/edurag/courseta-go/internal/content"
)

// embeddedDoc builds a test document with the given id and embedding.
func embeddedDoc(id int64, vec []float32) content.Document {
	return content.Document{
		ID:        id,
		Source:    content.SourceGitHub,
		Content:   "doc",
		URL:       "https://e/doc",
		Title:     "doc",
		Embedding: vec,
	}
}

func Test_Build_SkipsAbsentEmbeddings(t *testing.T) {
	t.Parallel()

	docs := []content.Document{
		embeddedDoc(1, []float32{1, 0}),
		{ID: 2, Source: content.SourceDiscourse, URL: "https://e/2"}, // embed failed at ingest
		embeddedDoc(3, []float32{0, 1}),
	}
	idx, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("want 2 rows, got %d", idx.Len())
	}
	if ids := idx.IDs(); ids[0] != 1 || ids[1] != 3 {
		t.Errorf("want ids [1 3] in store order, got %v", ids)
	}
}

func Test_Build_RejectsWrongDimension(t *testing.T) {
	t.Parallel()

	docs := []content.Document{embeddedDoc(1, []float32{1, 0, 0})}
	if _, err := Build(docs, 2); err == nil {
		t.Fatal("want error for 3-dim embedding in 2-dim index, got nil")
	}
}

func Test_Build_Idempotent(t *testing.T) {
	t.Parallel()

	docs := []content.Document{
		embeddedDoc(1, []float32{1, 0}),
		embeddedDoc(2, []float32{0, 1}),
	}
	a, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build a: %v", err)
	}
	b, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build b: %v", err)
	}
	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d != %d", a.Len(), b.Len())
	}
	for i := range a.ids {
		if a.ids[i] != b.ids[i] {
			t.Errorf("ids[%d] differ: %d != %d", i, a.ids[i], b.ids[i])
		}
		for j := range a.matrix[i] {
			if a.matrix[i][j] != b.matrix[i][j] {
				t.Errorf("matrix[%d][%d] differ", i, j)
			}
		}
	}
}

func Test_Search_RankingByDotProduct(t *testing.T) {
	t.Parallel()

	// Corpus from the retrieval acceptance scenario: query [1,0] must rank
	// doc1 (1.0) > doc3 (0.7) > doc2 (0.0).
	docs := []content.Document{
		embeddedDoc(1, []float32{1, 0}),
		embeddedDoc(2, []float32{0, 1}),
		embeddedDoc(3, []float32{0.7, 0.7}),
	}
	idx, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	wantIDs := []int64{1, 3, 2}
	wantScores := []float32{1.0, 0.7, 0.0}
	for i := range wantIDs {
		if results[i].Doc.ID != wantIDs[i] {
			t.Errorf("rank %d: want doc %d, got %d", i, wantIDs[i], results[i].Doc.ID)
		}
		if results[i].Score != wantScores[i] {
			t.Errorf("rank %d: want score %v, got %v", i, wantScores[i], results[i].Score)
		}
	}
}

func Test_Search_TopKClampedToCorpusSize(t *testing.T) {
	t.Parallel()

	docs := []content.Document{
		embeddedDoc(1, []float32{1, 0}),
		embeddedDoc(2, []float32{0, 1}),
	}
	idx, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("want min(5, 2) = 2 results, got %d", len(results))
	}
}

func Test_Search_EmptyIndexReturnsEmpty(t *testing.T) {
	t.Parallel()

	idx, err := Build(nil, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want empty result set, got %d", len(results))
	}
}

func Test_Search_TieBreakByInsertionOrder(t *testing.T) {
	t.Parallel()

	// Both documents score identically against the query; the
	// earlier-inserted one must win, and repeated queries must agree.
	docs := []content.Document{
		embeddedDoc(10, []float32{1, 0}),
		embeddedDoc(20, []float32{1, 0}),
		embeddedDoc(30, []float32{0, 1}),
	}
	idx, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for range 5 {
		results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if results[0].Doc.ID != 10 || results[1].Doc.ID != 20 {
			t.Fatalf("tie-break violated: got [%d %d], want [10 20]", results[0].Doc.ID, results[1].Doc.ID)
		}
	}
}

func Test_Search_QueryDimensionMismatch(t *testing.T) {
	t.Parallel()

	idx, err := Build([]content.Document{embeddedDoc(1, []float32{1, 0})}, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0}, 1); err == nil {
		t.Fatal("want error for mismatched query dimension, got nil")
	}
}
