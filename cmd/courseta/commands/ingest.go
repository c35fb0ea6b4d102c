package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/edurag/courseta-go/internal/ingest"
	"github.com/edurag/courseta-go/internal/logging"
)

// Default ingestion window: the January 2025 course term.
const (
	defaultFromDate = "2025-01-01"
	defaultToDate   = "2025-04-14"
)

// NewIngestCmd constructs the `courseta ingest` command, which fetches course
// files and forum posts, embeds them, and persists them in the content store.
func NewIngestCmd() *cobra.Command {
	var fromDate string
	var toDate string
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest course files and forum posts into the content store",
		Long: `Fetch course files from the course GitHub repository and posts from the
course Discourse forum, embed them through the AI proxy, and persist them in
the local content store.

Re-running ingestion is safe: documents are identified by (source, url), so
existing rows are updated in place and keep their identifiers. Documents whose
embedding call fails are stored without a vector and picked up later by
'courseta reembed'.

Required environment variables:
  AIPROXY_TOKEN               AI proxy token for embeddings
  GITHUB_REPO                 Course repository in owner/name form
  DISCOURSE_URL               Course forum root URL
  DISCOURSE_T_COOKIE          Forum "_t" session cookie
  DISCOURSE_SESSION_COOKIE    Forum "_forum_session" cookie

Examples:
  courseta ingest
  courseta ingest --from 2025-01-01 --to 2025-04-14`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			start, err := time.Parse("2006-01-02", fromDate)
			if err != nil {
				return fmt.Errorf("ingest: invalid --from date %q: %w", fromDate, err)
			}
			end, err := time.Parse("2006-01-02", toDate)
			if err != nil {
				return fmt.Errorf("ingest: invalid --to date %q: %w", toDate, err)
			}
			// --to names a calendar day; include the whole of it.
			end = end.AddDate(0, 0, 1).Add(-time.Second)
			if end.Before(start) {
				return fmt.Errorf("ingest: --to %s is before --from %s", toDate, fromDate)
			}

			gw, err := newGateway()
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			store, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = store.Close() }()

			fetchers, err := buildFetchers(start, end, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(fetchers) == 0 {
				return fmt.Errorf("ingest: no sources configured — set GITHUB_REPO and/or DISCOURSE_URL")
			}

			log.Info("starting ingestion",
				slog.String("from", fromDate),
				slog.String("to", toDate),
				slog.Int("sources", len(fetchers)),
			)

			pipeline := ingest.New(fetchers, gw, store, log, ingest.WithEmbedWorkers(workers))
			summary, err := pipeline.Run(ctx)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Printf("ingested %d documents (%d embedded, %d stored without vectors)\n",
				summary.Stored, summary.Embedded, summary.Stored-summary.Embedded)
			if len(summary.SourcesFailed) > 0 {
				fmt.Printf("warning: sources failed: %s\n", strings.Join(summary.SourcesFailed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromDate, "from", defaultFromDate, "Start of the forum post window (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&toDate, "to", defaultToDate, "End of the forum post window (YYYY-MM-DD, inclusive)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent embedding calls (default 4)")

	return cmd
}
