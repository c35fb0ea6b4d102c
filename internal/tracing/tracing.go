// Package tracing wires optional Langfuse tracing around generation calls.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

const defaultHost = "http://localhost:3000"

// Setup registers a Langfuse callback handler globally when
// LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY are set; otherwise tracing is
// silently disabled. LANGFUSE_HOST overrides the default local instance.
//
// The returned flush function must be called before process exit so buffered
// traces are sent; it is a no-op when tracing is disabled.
func Setup(log *slog.Logger) func() {
	publicKey := os.Getenv("LANGFUSE_PUBLIC_KEY")
	secretKey := os.Getenv("LANGFUSE_SECRET_KEY")
	if publicKey == "" || secretKey == "" {
		return func() {}
	}

	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: publicKey,
		SecretKey: secretKey,
	})
	callbacks.AppendGlobalHandlers(handler)

	if log != nil {
		log.Info("langfuse tracing enabled", slog.String("host", host))
	}
	return flusher
}
