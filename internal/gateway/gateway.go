// Package gateway is the client for the AI Proxy embedding endpoint
// (an OpenAI-compatible /embeddings API). Both the ingestion pipeline and
// the query path obtain their vectors through this package, so every stored
// and queried embedding shares one fixed dimension. Plain HTTP is used
// deliberately — the API surface is one POST, no SDK is warranted.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Defaults for the AI Proxy embedding gateway.
const (
	// DefaultBaseURL is the AI Proxy OpenAI-compatible API base.
	DefaultBaseURL = "https://aiproxy.sanand.workers.dev/openai/v1"
	// DefaultModel is the embedding model served by the gateway.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions is the output dimension of text-embedding-3-small.
	DefaultDimensions = 1536
	// MaxInputUnits is the longest input the gateway accepts per embed call.
	// Callers must truncate before calling Embed.
	MaxInputUnits = 8192
	// defaultTimeout bounds each embedding request.
	defaultTimeout = 10 * time.Second
)

// Embedder converts a single text into its embedding vector.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed returns the embedding for text, or an error on any gateway
	// failure or timeout. The returned vector always has the gateway's
	// fixed dimension.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds the settings for constructing a Client.
type Config struct {
	// BaseURL is the API base URL (default: DefaultBaseURL).
	BaseURL string
	// Token is the Bearer token for the gateway.
	Token string
	// Model is the embedding model name (default: DefaultModel).
	Model string
	// Dimensions is the expected vector length (default: DefaultDimensions).
	// Responses with any other length are rejected.
	Dimensions int
	// Timeout bounds each HTTP request (default: 10s).
	Timeout time.Duration
}

// Client implements Embedder against the AI Proxy REST API.
// It is safe for concurrent use.
type Client struct {
	// baseURL is the API base (no trailing slash).
	baseURL string
	// token is the Bearer token sent on every request.
	token string
	// model is the embedding model name.
	model string
	// dimensions is the required length of every returned vector.
	dimensions int
	// client is the shared HTTP client with the configured timeout.
	client *http.Client
}

// NewClient constructs a Client from the given config, applying defaults.
func NewClient(cfg *Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// Dimensions returns the fixed vector length this client enforces.
func (c *Client) Dimensions() int { return c.dimensions }

// embedRequest is the JSON body sent to the embeddings endpoint.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the JSON body returned from the embeddings endpoint.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed requests the embedding for text. The gateway's input cap is the
// caller's responsibility (see MaxInputUnits); the response vector length is
// validated against the configured dimension.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies are not always JSON (a proxy 502 may be HTML), so
		// decoding is best effort and the status code is never lost.
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var apiErr embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != nil {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gateway: %s", msg)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}

	if len(result.Data) != 1 {
		return nil, fmt.Errorf("gateway: expected 1 embedding, got %d", len(result.Data))
	}
	vec := result.Data[0].Embedding
	if len(vec) != c.dimensions {
		return nil, fmt.Errorf("gateway: expected %d-dim embedding, got %d", c.dimensions, len(vec))
	}
	return vec, nil
}

// Ping probes gateway reachability without burning embedding tokens: any
// HTTP response (including a 4xx) means the endpoint is up; only transport
// failures count as unreachable. Used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("gateway: create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: unreachable: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// Truncate caps text at MaxInputUnits units, cutting on a rune boundary so
// the gateway never receives a torn UTF-8 sequence.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxInputUnits {
		return text
	}
	return string(runes[:MaxInputUnits])
}
