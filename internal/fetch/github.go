package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/edurag/courseta-go/internal/content"
)

// archiveTimeout bounds each GitHub API and raw-download request.
const archiveTimeout = 10 * time.Second

// archiveExtensions lists the file extensions ingested from the course
// archive; everything else in the repository directory is skipped.
var archiveExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// ArchiveConfig configures the course file archive fetcher.
type ArchiveConfig struct {
	// Owner and Repo identify the repository holding the course files.
	Owner string
	Repo  string
	// Dir is the directory within the repository to list; empty means the
	// repository root.
	Dir string
	// Token is an optional GitHub access token. Unauthenticated access
	// works for public repositories but is rate limited aggressively.
	Token string
	// BaseURL overrides the GitHub API endpoint. Must end with a slash.
	BaseURL string
	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Archive fetches course files (.md and .txt) from a GitHub repository
// directory. Each matching file becomes one document whose URL is the file's
// html_url and whose title is the file name.
type Archive struct {
	client   *gh.Client
	download *http.Client
	owner    string
	repo     string
	dir      string
	log      *slog.Logger
}

// NewArchive builds the archive fetcher from cfg.
func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github archive: owner and repo are required")
	}

	httpClient := &http.Client{Timeout: archiveTimeout}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = archiveTimeout
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github archive: parse base url: %w", err)
		}
		client.BaseURL = base
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Archive{
		client:   client,
		download: &http.Client{Timeout: archiveTimeout},
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		dir:      cfg.Dir,
		log:      log,
	}, nil
}

// Name implements Fetcher.
func (a *Archive) Name() string { return "github" }

// Fetch lists the configured repository directory and downloads every file
// with an ingestable extension. Individual file downloads that fail are
// logged and skipped; only the directory listing itself is fatal.
func (a *Archive) Fetch(ctx context.Context) ([]RawDocument, error) {
	var entries []*gh.RepositoryContent
	err := WithRetry(ctx, a.log, "list course archive", func() error {
		_, dir, _, err := a.client.Repositories.GetContents(ctx, a.owner, a.repo, a.dir, nil)
		if err != nil {
			return classifyGitHubError(err)
		}
		entries = dir
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("github archive: list %s/%s: %w", a.owner, a.repo, err)
	}

	docs := make([]RawDocument, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" || !archiveExtensions[strings.ToLower(path.Ext(entry.GetName()))] {
			continue
		}

		text, err := a.downloadFile(ctx, entry.GetDownloadURL())
		if err != nil {
			a.log.Warn("skipping archive file",
				slog.String("file", entry.GetName()),
				slog.Any("error", err),
			)
			continue
		}

		docs = append(docs, RawDocument{
			Source:  content.SourceGitHub,
			Content: text,
			URL:     entry.GetHTMLURL(),
			Title:   entry.GetName(),
		})
	}

	a.log.Info("fetched course archive",
		slog.String("repo", a.owner+"/"+a.repo),
		slog.Int("files", len(docs)),
	)
	return docs, nil
}

// downloadFile retrieves a file's raw contents from its download URL.
func (a *Archive) downloadFile(ctx context.Context, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", errors.New("entry has no download url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := a.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{Status: resp.StatusCode, URL: downloadURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// classifyGitHubError maps go-github error types onto HTTPStatusError so the
// shared transient classification applies.
func classifyGitHubError(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &HTTPStatusError{Status: http.StatusTooManyRequests, URL: "github api"}
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &HTTPStatusError{Status: http.StatusTooManyRequests, URL: "github api"}
	}
	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return &HTTPStatusError{Status: respErr.Response.StatusCode, URL: respErr.Response.Request.URL.String()}
	}
	return err
}
