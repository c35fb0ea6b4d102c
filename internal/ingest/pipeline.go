// Package ingest runs the ingestion pipeline: fetch documents from every
// configured source, embed them through the gateway, and persist them in the
// content store. The pipeline is best-effort per item: a document whose
// embedding call fails is stored without a vector and picked up later by a
// re-embed pass.
package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/edurag/courseta-go/internal/content"
	"github.com/edurag/courseta-go/internal/fetch"
	"github.com/edurag/courseta-go/internal/gateway"
)

// defaultEmbedWorkers bounds concurrent embedding calls.
const defaultEmbedWorkers = 4

// Summary reports what one pipeline run accomplished.
type Summary struct {
	// Fetched is the number of documents collected across all sources.
	Fetched int
	// Stored is the number of documents persisted.
	Stored int
	// Embedded is the number of stored documents that carry a vector.
	Embedded int
	// SourcesFailed lists fetchers that returned an error and contributed
	// nothing to this run.
	SourcesFailed []string
}

// Pipeline wires fetchers, the embedding gateway, and the content store.
type Pipeline struct {
	fetchers []fetch.Fetcher
	embedder gateway.Embedder
	store    *content.Store
	workers  int
	log      *slog.Logger
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithEmbedWorkers overrides the embedding concurrency.
func WithEmbedWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New builds a pipeline over the given fetchers, embedder, and store.
func New(fetchers []fetch.Fetcher, embedder gateway.Embedder, store *content.Store, log *slog.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		fetchers: fetchers,
		embedder: embedder,
		store:    store,
		workers:  defaultEmbedWorkers,
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full ingestion pass. Sources are fetched concurrently but
// their documents are persisted in configured fetcher order, so identifiers
// assigned on first insert are stable from run to run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	docs := p.fetchAll(ctx, summary)
	summary.Fetched = len(docs)

	vectors := p.embedAll(ctx, docs)

	for i, raw := range docs {
		doc := &content.Document{
			Source:    raw.Source,
			Content:   raw.Content,
			URL:       raw.URL,
			Title:     raw.Title,
			Embedding: vectors[i],
		}
		if _, err := p.store.Upsert(ctx, doc); err != nil {
			p.log.Error("failed to store document",
				slog.String("url", raw.URL),
				slog.Any("error", err),
			)
			continue
		}
		summary.Stored++
		if doc.Embedded() {
			summary.Embedded++
		}
	}

	p.log.Info("ingestion run complete",
		slog.Int("fetched", summary.Fetched),
		slog.Int("stored", summary.Stored),
		slog.Int("embedded", summary.Embedded),
		slog.Int("sources_failed", len(summary.SourcesFailed)),
	)
	return summary, nil
}

// fetchAll runs every fetcher concurrently and concatenates their results in
// configured order. A failed source is recorded in the summary and skipped.
func (p *Pipeline) fetchAll(ctx context.Context, summary *Summary) []fetch.RawDocument {
	type result struct {
		docs []fetch.RawDocument
		err  error
	}
	results := make([]result, len(p.fetchers))

	var wg sync.WaitGroup
	for i, f := range p.fetchers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := f.Fetch(ctx)
			results[i] = result{docs: docs, err: err}
		}()
	}
	wg.Wait()

	var all []fetch.RawDocument
	for i, f := range p.fetchers {
		if results[i].err != nil {
			p.log.Error("source fetch failed",
				slog.String("source", f.Name()),
				slog.Any("error", results[i].err),
			)
			summary.SourcesFailed = append(summary.SourcesFailed, f.Name())
			continue
		}
		all = append(all, results[i].docs...)
	}
	return all
}

// embedAll embeds every document with bounded concurrency, truncating
// oversized inputs first. The returned slice is index-parallel with docs;
// a nil entry means the embedding call failed and the document will be
// stored without a vector.
func (p *Pipeline) embedAll(ctx context.Context, docs []fetch.RawDocument) [][]float32 {
	vectors := make([][]float32, len(docs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				vec, err := p.embedder.Embed(ctx, gateway.Truncate(docs[i].Content))
				if err != nil {
					p.log.Warn("embedding failed, storing without vector",
						slog.String("url", docs[i].URL),
						slog.Any("error", err),
					)
					continue
				}
				vectors[i] = vec
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return vectors
}

// Reembed finds stored documents without a vector, embeds them, and writes
// the vectors back. It returns how many documents gained an embedding.
func (p *Pipeline) Reembed(ctx context.Context) (int, error) {
	missing, err := p.store.MissingEmbedding(ctx)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, doc := range missing {
		vec, err := p.embedder.Embed(ctx, gateway.Truncate(doc.Content))
		if err != nil {
			p.log.Warn("re-embedding failed",
				slog.Int64("id", doc.ID),
				slog.Any("error", err),
			)
			continue
		}
		if err := p.store.UpdateEmbedding(ctx, doc.ID, vec); err != nil {
			p.log.Error("failed to store embedding",
				slog.Int64("id", doc.ID),
				slog.Any("error", err),
			)
			continue
		}
		fixed++
	}

	p.log.Info("re-embed pass complete",
		slog.Int("missing", len(missing)),
		slog.Int("embedded", fixed),
	)
	return fixed, nil
}
