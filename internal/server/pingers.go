package server

import (
	"context"
	"fmt"

	"github.com/edurag/courseta-go/internal/content"
	"github.com/edurag/courseta-go/internal/gateway"
	"github.com/edurag/courseta-go/internal/index"
)

// StorePinger probes the content store. It satisfies the Pinger interface
// and is used by GET /api/ready.
type StorePinger struct {
	store *content.Store
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(store *content.Store) *StorePinger {
	return &StorePinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "content-store" }

// Ping runs a trivial query against the database.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// GatewayPinger probes the embedding gateway without consuming tokens.
type GatewayPinger struct {
	client *gateway.Client
}

// NewGatewayPinger constructs a GatewayPinger for the given client.
func NewGatewayPinger(client *gateway.Client) *GatewayPinger {
	return &GatewayPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *GatewayPinger) Name() string { return "gateway" }

// Ping checks the gateway endpoint is reachable.
func (p *GatewayPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("embedding gateway unreachable: %w", err)
	}
	return nil
}

// QdrantPinger probes a Qdrant-backed index using its native health check.
// Only registered when the qdrant index backend is selected.
type QdrantPinger struct {
	idx *index.Qdrant
}

// NewQdrantPinger constructs a QdrantPinger for the given index.
func NewQdrantPinger(idx *index.Qdrant) *QdrantPinger {
	return &QdrantPinger{idx: idx}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant health check RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.idx.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
