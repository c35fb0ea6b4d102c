package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/edurag/courseta-go/internal/index"
	"github.com/edurag/courseta-go/internal/logging"
	"github.com/edurag/courseta-go/internal/provider"
	"github.com/edurag/courseta-go/internal/qa"
	"github.com/edurag/courseta-go/internal/server"
	"github.com/edurag/courseta-go/internal/tracing"
)

// NewServeCmd constructs the `courseta serve` command, which builds the
// retrieval index from the content store and starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the question-answering HTTP API",
		Long: `Start the courseta HTTP server.

The server loads the ingested corpus from the content store, builds the
retrieval index (in memory by default, Qdrant with INDEX_BACKEND=qdrant),
and answers questions on POST /api/. Liveness, readiness, and Prometheus
metrics endpoints are exposed alongside.

The index is rebuilt from the store on every start; run 'courseta ingest'
and restart to pick up new content.

Examples:
  courseta serve
  courseta serve --port 9000
  INDEX_BACKEND=qdrant courseta serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Flags win over env; env (including YAML-loaded values) wins
			// over the built-in defaults.
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("COURSETA_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("COURSETA_PORT", port)
			}

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			flush := tracing.Setup(log)
			defer flush()

			gw, err := newGateway()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			store, err := openStore(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = store.Close() }()

			total, embedded, err := store.Count(ctx)
			if err != nil {
				return fmt.Errorf("serve: count corpus: %w", err)
			}
			log.Info("corpus loaded",
				slog.Int("documents", total),
				slog.Int("embedded", embedded),
			)
			if total == 0 {
				log.Warn("content store is empty — run 'courseta ingest' first")
			}

			searcher, closeSearcher, err := buildSearcher(ctx, store, gw.Dimensions(), log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeSearcher()

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "openai")))

			pingers := []server.Pinger{
				server.NewStorePinger(store),
				server.NewGatewayPinger(gw),
			}
			if qdr, ok := searcher.(*index.Qdrant); ok {
				pingers = append(pingers, server.NewQdrantPinger(qdr))
			}

			srv, err := server.New(qa.New(gw, searcher, chatModel, log), &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("COURSETA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8000, "TCP port to listen on")

	return cmd
}
