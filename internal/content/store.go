package content

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Store is the SQLite-backed content store. It is safe for concurrent use;
// writes are serialised onto a single connection.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the content database.
// It resolves to ~/.courseta/content.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("content: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".courseta")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("content: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "content.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("content: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS content (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    source     TEXT NOT NULL CHECK(source IN ('github','discourse')),
    content    TEXT NOT NULL,
    url        TEXT NOT NULL,
    title      TEXT NOT NULL,
    embedding  BLOB  -- little-endian float32 sequence; NULL when the embed call failed
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_content_source_url
    ON content (source, url);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("content: migrate: %w", err)
	}
	return nil
}

// Upsert persists a document keyed by (source, url). The first insert assigns
// the row id; subsequent upserts of the same key update content, title, and
// embedding in place and keep the id. The assigned id is returned.
func (s *Store) Upsert(ctx context.Context, doc *Document) (int64, error) {
	const q = `
INSERT INTO content (source, content, url, title, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (source, url) DO UPDATE SET
    content   = excluded.content,
    title     = excluded.title,
    embedding = excluded.embedding
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, q,
		string(doc.Source), doc.Content, doc.URL, doc.Title, encodeEmbedding(doc.Embedding),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("content: upsert %s %s: %w", doc.Source, doc.URL, err)
	}
	doc.ID = id
	return id, nil
}

// All returns every document in insertion (id) order, decoded embeddings
// included. This is the load path for the vector index build.
func (s *Store) All(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, source, content, url, title, embedding FROM content ORDER BY id ASC`
	return s.queryDocs(ctx, q)
}

// MissingEmbedding returns, in id order, the documents that were persisted
// without an embedding. Used by the re-embedding pass.
func (s *Store) MissingEmbedding(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, source, content, url, title, embedding FROM content WHERE embedding IS NULL ORDER BY id ASC`
	return s.queryDocs(ctx, q)
}

// UpdateEmbedding sets the embedding for an existing row. Only the embedding
// column is touched.
func (s *Store) UpdateEmbedding(ctx context.Context, id int64, vec []float32) error {
	const q = `UPDATE content SET embedding = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, encodeEmbedding(vec), id)
	if err != nil {
		return fmt.Errorf("content: update embedding id=%d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("content: update embedding id=%d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("content: update embedding: no document with id %d", id)
	}
	return nil
}

// Count returns the total number of documents and how many carry an embedding.
func (s *Store) Count(ctx context.Context) (total, embedded int, err error) {
	const q = `SELECT COUNT(*), COUNT(embedding) FROM content`
	if err := s.db.QueryRowContext(ctx, q).Scan(&total, &embedded); err != nil {
		return 0, 0, fmt.Errorf("content: count: %w", err)
	}
	return total, embedded, nil
}

// Ping verifies the database connection is alive. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("content: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("content: close: %w", err)
	}
	return nil
}

// queryDocs runs a SELECT over the content table and scans full documents.
func (s *Store) queryDocs(ctx context.Context, q string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("content: query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var source string
		var blob []byte
		if err := rows.Scan(&d.ID, &source, &d.Content, &d.URL, &d.Title, &blob); err != nil {
			return nil, fmt.Errorf("content: scan: %w", err)
		}
		d.Source = Source(source)
		if d.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content: rows: %w", err)
	}
	return docs, nil
}
