package index

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/edurag/courseta-go/internal/content"
)

// QdrantConfig holds connection parameters for the optional Qdrant backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in the collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// Qdrant is a Searcher backed by a Qdrant instance. It is the documented
// upgrade path for corpora too large for brute force: the content store
// remains the source of truth and the collection is re-synced wholesale at
// serve start, so the collection stays a derived, rebuildable cache exactly
// like the in-memory index.
type Qdrant struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this backend.
	cfg *QdrantConfig
}

// NewQdrant creates a Qdrant backend, ensuring the target collection exists
// (creating it if necessary).
func NewQdrant(ctx context.Context, cfg *QdrantConfig) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	q := &Qdrant{client: client, cfg: cfg}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// ensureCollection creates the collection if it does not already exist.
func (q *Qdrant) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}
	return nil
}

// Sync upserts every embedded document into the collection, keyed by the
// store id so re-syncing after re-ingestion updates points in place.
// Documents without an embedding are skipped.
func (q *Qdrant) Sync(ctx context.Context, docs []content.Document) error {
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, d := range docs {
		if !d.Embedded() {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(d.ID)),
			Vectors: qdrant.NewVectors(d.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"source":  string(d.Source),
				"content": d.Content,
				"url":     d.URL,
				"title":   d.Title,
			}),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Search performs a cosine similarity query and returns the top-k results.
// k <= 0 selects DefaultTopK.
func (q *Qdrant) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	limit := uint64(k)

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r := Result{Score: p.Score}
		r.Doc.ID = int64(p.Id.GetNum())
		if payload := p.Payload; payload != nil {
			if v, ok := payload["source"]; ok {
				r.Doc.Source = content.Source(v.GetStringValue())
			}
			if v, ok := payload["content"]; ok {
				r.Doc.Content = v.GetStringValue()
			}
			if v, ok := payload["url"]; ok {
				r.Doc.URL = v.GetStringValue()
			}
			if v, ok := payload["title"]; ok {
				r.Doc.Title = v.GetStringValue()
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by readiness probes.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}
