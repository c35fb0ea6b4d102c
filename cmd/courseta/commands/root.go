// Package commands defines all Cobra CLI commands for the courseta binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/edurag/courseta-go/internal/audit"
	"github.com/edurag/courseta-go/internal/config"
	"github.com/edurag/courseta-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "courseta",
		Short: "courseta — teaching assistant for the Tools in Data Science course",
		Long: `courseta answers student questions about the Tools in Data Science course.

It ingests course files from the course GitHub repository and posts from the
course Discourse forum into a local SQLite content store, embeds them through
the course AI proxy, and answers questions over the indexed corpus via a CLI
or an HTTP API.

Configuration comes from environment variables or a YAML config file
(~/.courseta/config.yaml). See 'courseta --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional and never overrides the real environment.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.courseta/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewReembedCmd(),
		NewAskCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
