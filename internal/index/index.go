// Package index implements top-k similarity search over embedded documents.
//
// The default backend is an in-memory {ids, matrix} structure built from the
// content store at serve time: row i of the matrix is the embedding of
// ids[i], in store insertion order. The structure is immutable after build,
// so concurrent queries need no locking; picking up newly ingested documents
// requires a restart (ingestion is an offline job, not a live write path).
//
// Searcher is the seam for swapping in an approximate backend when the
// corpus outgrows brute force; see Qdrant in this package.
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/edurag/courseta-go/internal/content"
)

// DefaultTopK is the number of results returned when the caller passes k <= 0.
const DefaultTopK = 5

// Result is a single retrieval hit.
type Result struct {
	// Doc is the matched document.
	Doc content.Document
	// Score is the similarity score for the query (higher is closer).
	Score float32
}

// Searcher answers top-k similarity queries for a query embedding.
// Implementations must be safe to call from multiple goroutines.
type Searcher interface {
	// Search returns the top min(k, N) documents for the query vector in
	// descending score order. An empty corpus yields an empty slice, not an
	// error.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// Index is the in-memory brute-force Searcher.
type Index struct {
	// ids[i] is the store id of the document whose embedding is matrix[i].
	ids []int64
	// matrix holds one embedding per row, in store insertion order.
	matrix [][]float32
	// docs is parallel to ids; kept so Search can return full documents.
	docs []content.Document
	// dim is the fixed embedding dimension every row must have.
	dim int
}

// Build constructs an Index from the given documents, projecting only those
// with a present embedding, in the order given (callers pass store order).
// Every present embedding must have exactly dim entries.
func Build(docs []content.Document, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: dimension must be positive, got %d", dim)
	}

	idx := &Index{dim: dim}
	for _, d := range docs {
		if !d.Embedded() {
			continue
		}
		if len(d.Embedding) != dim {
			return nil, fmt.Errorf("index: document %d has %d-dim embedding, want %d", d.ID, len(d.Embedding), dim)
		}
		idx.ids = append(idx.ids, d.ID)
		idx.matrix = append(idx.matrix, d.Embedding)
		idx.docs = append(idx.docs, d)
	}
	return idx, nil
}

// Len returns the number of embedded documents in the index.
func (idx *Index) Len() int { return len(idx.ids) }

// IDs returns the document ids in matrix-row order.
func (idx *Index) IDs() []int64 { return idx.ids }

// Search scores the query against every row by dot product and returns the
// top min(k, N) documents in descending score order. Embeddings from the
// gateway are unit-normalised, so the dot product equals cosine similarity;
// for unnormalised vectors the score is still a usable similarity proxy.
// Ties are broken by insertion order (earlier-inserted document wins).
// k <= 0 selects DefaultTopK.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]Result, error) {
	if len(idx.matrix) == 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("index: query has %d dims, index has %d", len(query), idx.dim)
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if k > len(idx.matrix) {
		k = len(idx.matrix)
	}

	scores := make([]float32, len(idx.matrix))
	for i, row := range idx.matrix {
		scores[i] = dot(query, row)
	}

	// Stable sort over row positions keeps insertion order for equal scores.
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]Result, 0, k)
	for _, i := range order[:k] {
		results = append(results, Result{Doc: idx.docs[i], Score: scores[i]})
	}
	return results, nil
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
