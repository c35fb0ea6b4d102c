// Package fetch implements the source fetchers that feed the ingestion
// pipeline: the course file archive (a GitHub repository) and the course
// Discourse forum. Each fetcher produces a finite batch of RawDocuments and
// re-fetches from scratch on every call; there is no resumable cursor.
//
// Transient upstream failures (rate limits, 5xx, network errors) are retried
// with exponential backoff up to a fixed attempt count. A fetcher that
// exhausts its retries returns the error; the pipeline treats that as "this
// source contributed zero documents" and carries on.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/edurag/courseta-go/internal/content"
)

// Retry parameters shared by all fetchers.
const (
	// maxAttempts is the total number of tries for a transient failure.
	maxAttempts = 3
	// baseDelay is the first backoff delay; it doubles after each attempt.
	baseDelay = time.Second
)

// RawDocument is a document as yielded by a fetcher, before persistence and
// embedding.
type RawDocument struct {
	// Source identifies the origin feed.
	Source content.Source
	// Content is the document text.
	Content string
	// URL is the canonical link back to the document.
	URL string
	// Title is the human-readable title.
	Title string
	// CreatedAt is the item's creation timestamp where the origin provides
	// one (forum posts); zero otherwise.
	CreatedAt time.Time
}

// Fetcher yields the full batch of raw documents from one origin.
type Fetcher interface {
	// Name returns a short label for the origin (e.g. "github", "discourse").
	Name() string
	// Fetch retrieves all documents from the origin. It applies its own
	// bounded retry; a returned error means the source is unavailable for
	// this run.
	Fetch(ctx context.Context) ([]RawDocument, error)
}

// HTTPStatusError reports a non-2xx response from an origin. Fetchers wrap
// upstream status failures in this type so retry classification stays in one
// place.
type HTTPStatusError struct {
	// Status is the HTTP status code received.
	Status int
	// URL is the request URL that failed.
	URL string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Status, e.URL)
}

// IsTransient reports whether err is worth retrying: rate limiting, server
// errors, and transport-level failures. Client errors (bad request, auth)
// are permanent and not retried.
func IsTransient(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == 429 || statusErr.Status >= 500
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Network-level failure; context cancellation is not retryable.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

// WithRetry runs fn with the package retry policy: up to maxAttempts tries,
// backoff doubling from baseDelay, retrying only transient failures.
func WithRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	return retry(ctx, log, op, maxAttempts, baseDelay, fn)
}

// retry is the policy-parameterised core of WithRetry, split out so tests
// can run with a short base delay.
func retry(ctx context.Context, log *slog.Logger, op string, attempts int, base time.Duration, fn func() error) error {
	delay := base
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= attempts || !IsTransient(err) {
			return err
		}

		log.Warn("transient failure, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
