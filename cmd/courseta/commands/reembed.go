package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edurag/courseta-go/internal/ingest"
	"github.com/edurag/courseta-go/internal/logging"
)

// NewReembedCmd constructs the `courseta reembed` command, which retries
// embedding for stored documents that have no vector.
func NewReembedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reembed",
		Short: "Embed stored documents that are missing a vector",
		Long: `Find documents that were stored without an embedding (usually because the
AI proxy was unavailable during ingestion) and embed them now.

Requires AIPROXY_TOKEN. Safe to run repeatedly; documents that already carry
a vector are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()

			gw, err := newGateway()
			if err != nil {
				return fmt.Errorf("reembed: %w", err)
			}

			store, err := openStore(log)
			if err != nil {
				return fmt.Errorf("reembed: %w", err)
			}
			defer func() { _ = store.Close() }()

			pipeline := ingest.New(nil, gw, store, log)
			fixed, err := pipeline.Reembed(cmd.Context())
			if err != nil {
				return fmt.Errorf("reembed: %w", err)
			}

			fmt.Printf("embedded %d documents\n", fixed)
			return nil
		},
	}
}
