package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edurag/courseta-go/internal/content"
	"github.com/edurag/courseta-go/internal/fetch"
	"github.com/edurag/courseta-go/internal/gateway"
	"github.com/edurag/courseta-go/internal/index"
)

// openStore opens the content store at COURSETA_DB or the default path.
func openStore(log *slog.Logger) (*content.Store, error) {
	path := os.Getenv("COURSETA_DB")
	if path == "" {
		var err error
		path, err = content.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	}
	store, err := content.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	log.Info("content store opened", slog.String("path", path))
	return store, nil
}

// newGateway builds the embedding gateway client from the environment.
func newGateway() (*gateway.Client, error) {
	token := os.Getenv("AIPROXY_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("AIPROXY_TOKEN is required")
	}
	return gateway.NewClient(&gateway.Config{
		BaseURL:    os.Getenv("AIPROXY_URL"),
		Token:      token,
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
	}), nil
}

// buildFetchers constructs the configured source fetchers for the given date
// window. A source with no configuration is skipped with a log line rather
// than treated as an error, so partial setups still ingest what they can.
func buildFetchers(start, end time.Time, log *slog.Logger) ([]fetch.Fetcher, error) {
	var fetchers []fetch.Fetcher

	if repo := os.Getenv("GITHUB_REPO"); repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok {
			return nil, fmt.Errorf("GITHUB_REPO must be in owner/name form, got %q", repo)
		}
		archive, err := fetch.NewArchive(fetch.ArchiveConfig{
			Owner:  owner,
			Repo:   name,
			Dir:    os.Getenv("GITHUB_DIR"),
			Token:  os.Getenv("GITHUB_TOKEN"),
			Logger: log,
		})
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, archive)
	} else {
		log.Info("github source disabled", slog.String("reason", "GITHUB_REPO not set"))
	}

	if forumURL := os.Getenv("DISCOURSE_URL"); forumURL != "" {
		var keywords []string
		if kw := os.Getenv("DISCOURSE_CATEGORY"); kw != "" {
			keywords = []string{strings.ToLower(kw)}
		}
		forum, err := fetch.NewForum(fetch.ForumConfig{
			BaseURL:            forumURL,
			CategoryKeywords:   keywords,
			FallbackCategoryID: getEnvInt("DISCOURSE_FALLBACK_CATEGORY_ID", 9),
			Cookies: map[string]string{
				"_t":             os.Getenv("DISCOURSE_T_COOKIE"),
				"_forum_session": os.Getenv("DISCOURSE_SESSION_COOKIE"),
			},
			Start:  start,
			End:    end,
			Logger: log,
		})
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, forum)
	} else {
		log.Info("discourse source disabled", slog.String("reason", "DISCOURSE_URL not set"))
	}

	return fetchers, nil
}

// buildSearcher constructs the retrieval index over the stored corpus.
// INDEX_BACKEND=qdrant selects the Qdrant backend and re-syncs the collection
// from the content store; anything else builds the in-memory index. The
// returned close function releases backend resources.
func buildSearcher(ctx context.Context, store *content.Store, dimensions int, log *slog.Logger) (index.Searcher, func(), error) {
	docs, err := store.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus: %w", err)
	}

	if os.Getenv("INDEX_BACKEND") == "qdrant" {
		qdr, err := index.NewQdrant(ctx, &index.QdrantConfig{
			Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "courseta-content"),
			VectorSize: uint64(dimensions), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		if err := qdr.Sync(ctx, docs); err != nil {
			_ = qdr.Close()
			return nil, nil, fmt.Errorf("sync qdrant collection: %w", err)
		}
		log.Info("qdrant index synced", slog.Int("documents", len(docs)))
		return qdr, func() { _ = qdr.Close() }, nil
	}

	idx, err := index.Build(docs, dimensions)
	if err != nil {
		return nil, nil, fmt.Errorf("build index: %w", err)
	}
	log.Info("in-memory index built",
		slog.Int("documents", len(docs)),
		slog.Int("indexed", idx.Len()),
	)
	return idx, func() {}, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
