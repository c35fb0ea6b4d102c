package commands

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edurag/courseta-go/internal/logging"
	"github.com/edurag/courseta-go/internal/provider"
	"github.com/edurag/courseta-go/internal/qa"
	"github.com/edurag/courseta-go/internal/tracing"
)

// NewAskCmd constructs the `courseta ask` command, a one-shot question
// against the ingested corpus without starting the HTTP server.
func NewAskCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot question against the ingested course content",
		Long: `Answer a single question from the command line.

The question is embedded through the AI proxy, the most relevant course
content is retrieved from the local store, and an answer is generated with
the configured chat model. Run 'courseta ingest' first to populate the store.

Examples:
  courseta ask "When is the GA4 deadline?"
  courseta ask --image screenshot.webp "What does this error mean?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			question := strings.Join(args, " ")

			var imageB64 string
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("ask: read image: %w", err)
				}
				imageB64 = base64.StdEncoding.EncodeToString(data)
			}

			flush := tracing.Setup(log)
			defer flush()

			gw, err := newGateway()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			store, err := openStore(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = store.Close() }()

			searcher, closeSearcher, err := buildSearcher(ctx, store, gw.Dimensions(), log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeSearcher()

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: initialise model provider: %w", err)
			}

			svc := qa.New(gw, searcher, chatModel, log)
			ans, err := svc.Ask(ctx, question, imageB64)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(ans.Answer)
			if len(ans.Links) > 0 {
				fmt.Println("\nSources:")
				for _, link := range ans.Links {
					fmt.Printf("  - %s (%s)\n", link.Text, link.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Path to a webp screenshot to attach to the question")

	return cmd
}
