// Package content implements the SQLite-backed content store: the single
// durable table of ingested course documents and their embeddings. The store
// is the source of truth the vector index is rebuilt from at serve time.
//
// Document identity is the (source, url) pair. Re-ingesting a document
// updates the existing row in place; the numeric row id is assigned once at
// first persistence and never changes afterwards.
package content

// Source identifies the origin of a document.
type Source string

const (
	// SourceGitHub marks documents fetched from the course file archive
	// (markdown and text files in a GitHub repository).
	SourceGitHub Source = "github"
	// SourceDiscourse marks documents fetched from the course Discourse forum.
	SourceDiscourse Source = "discourse"
)

// Document is an ingested unit of course content.
type Document struct {
	// ID is the stable numeric identifier, assigned by the store at first
	// persistence and preserved across re-ingestion of the same (source, url).
	ID int64

	// Source identifies the origin feed the document came from.
	Source Source

	// Content is the document text (rendered HTML for forum posts, raw
	// markdown/plain text for archive files).
	Content string

	// URL is the canonical link back to the document. Unique within a source.
	URL string

	// Title is the human-readable document title (file name or topic title).
	Title string

	// Embedding is the document's vector representation, or nil when the
	// embedding call failed at ingest time. Documents with a nil embedding
	// are retained but excluded from retrieval until re-embedded.
	Embedding []float32
}

// Embedded reports whether the document carries an embedding.
func (d *Document) Embedded() bool { return len(d.Embedding) > 0 }
