// Package provider selects and constructs the chat model used for answer
// generation. Supported backends: an OpenAI-compatible endpoint (the default,
// pointed at the course AI proxy) and a locally running Ollama instance.
package provider

import (
	"context"
	"fmt"
	"os"
	"strconv"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported inference providers.
type Backend string

const (
	// BackendOpenAI selects an OpenAI-compatible API, including the course
	// AI proxy.
	BackendOpenAI Backend = "openai"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
)

// Generation defaults for the course assistant.
const (
	defaultProxyBaseURL = "https://aiproxy.sanand.workers.dev/openai/v1"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultOllamaHost   = "http://localhost:11434"
	defaultOllamaModel  = "llama3"
	defaultMaxTokens    = 1024
	defaultTemperature  = float32(0.2)
)

// Config holds provider configuration resolved from environment variables or
// explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name (e.g. "gpt-4o-mini", "llama3").
	Model string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// APIKey is the authentication credential (openai backend only).
	APIKey string

	// MaxTokens caps the tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks that the config names a known backend and carries the
// credentials it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: AIPROXY_TOKEN or OPENAI_API_KEY is required for openai backend")
		}
		if c.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendOllama:
		if c.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: openai, ollama", c.Backend)
	}
	return nil
}

// NewFromEnv constructs a chat model by reading provider configuration from
// environment variables. MODEL_PROVIDER selects the backend; each provider
// uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = openai | ollama (default: openai)
//
//	OpenAI: AIPROXY_TOKEN or OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o-mini),
//	        OPENAI_BASE_URL (default: the course AI proxy)
//	Ollama: OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//
//	Shared: MODEL_MAX_TOKENS (default: 1024), MODEL_TEMPERATURE (default: 0.2)
func NewFromEnv(ctx context.Context) (model.ToolCallingChatModel, error) {
	apiKey := os.Getenv("AIPROXY_TOKEN")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg := &Config{
		Backend:     Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendOpenAI))),
		APIKey:      apiKey,
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", defaultMaxTokens),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", defaultTemperature),
	}
	switch cfg.Backend {
	case BackendOllama:
		cfg.BaseURL = getEnvOrDefault("OLLAMA_HOST", defaultOllamaHost)
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", defaultOllamaModel)
	default:
		cfg.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", defaultProxyBaseURL)
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", defaultOpenAIModel)
	}

	return New(ctx, cfg)
}

// New constructs a chat model from an explicit Config. It validates the
// config first so callers get a clear error at startup rather than on the
// first request.
func New(ctx context.Context, cfg *Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   &cfg.MaxTokens,
			Temperature: &cfg.Temperature,
		})
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
