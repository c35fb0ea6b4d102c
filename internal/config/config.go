// Package config provides YAML-based configuration for courseta.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. COURSETA_CONFIG environment variable
//  3. ~/.courseta/config.yaml
//  4. ./courseta.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Gateway configures the embedding gateway (the course AI proxy).
	Gateway GatewayConfig `yaml:"gateway"`

	// Model configures the chat model used for answer generation.
	Model ModelConfig `yaml:"model"`

	// Sources configures the ingestion origins.
	Sources SourcesConfig `yaml:"sources"`

	// Store configures the content database.
	Store StoreConfig `yaml:"store"`

	// Index configures the retrieval index backend.
	Index IndexConfig `yaml:"index"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// GatewayConfig holds embedding gateway settings.
type GatewayConfig struct {
	// Token is the AI proxy token. Prefer env var AIPROXY_TOKEN.
	Token string `yaml:"token"`
	// BaseURL overrides the AI proxy endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: openai, ollama.
	Provider string `yaml:"provider"`
	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
	// OpenAI holds OpenAI-compatible backend settings.
	OpenAI OpenAIConfig `yaml:"openai"`
	// Ollama holds Ollama-specific settings.
	Ollama OllamaConfig `yaml:"ollama"`
}

// OpenAIConfig holds OpenAI-compatible backend settings.
type OpenAIConfig struct {
	// APIKey is the API key. Prefer env var OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the model name.
	Model string `yaml:"model"`
	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url"`
}

// OllamaConfig holds Ollama backend settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the Ollama model name.
	Model string `yaml:"model"`
}

// SourcesConfig holds ingestion origin settings.
type SourcesConfig struct {
	// GitHub holds course file archive settings.
	GitHub GitHubConfig `yaml:"github"`
	// Discourse holds course forum settings.
	Discourse DiscourseConfig `yaml:"discourse"`
}

// GitHubConfig holds course file archive settings.
type GitHubConfig struct {
	// Repo is the repository in "owner/name" form.
	Repo string `yaml:"repo"`
	// Dir is the directory inside the repository to ingest.
	Dir string `yaml:"dir"`
	// Token is a GitHub access token. Prefer env var GITHUB_TOKEN.
	Token string `yaml:"token"`
}

// DiscourseConfig holds course forum settings.
type DiscourseConfig struct {
	// URL is the forum root.
	URL string `yaml:"url"`
	// Category is a keyword used to locate the course category.
	Category string `yaml:"category"`
	// FallbackCategoryID is used when no category matches the keyword.
	FallbackCategoryID int `yaml:"fallback_category_id"`
	// TCookie is the "_t" session cookie. Prefer env var DISCOURSE_T_COOKIE.
	TCookie string `yaml:"t_cookie"`
	// SessionCookie is the "_forum_session" cookie. Prefer env var DISCOURSE_SESSION_COOKIE.
	SessionCookie string `yaml:"session_cookie"`
}

// StoreConfig holds content database settings.
type StoreConfig struct {
	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path"`
}

// IndexConfig holds retrieval index settings.
type IndexConfig struct {
	// Backend selects the index: memory (default) or qdrant.
	Backend string `yaml:"backend"`
	// Qdrant holds Qdrant connection settings.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var COURSETA_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"AIPROXY_TOKEN", func(c *Config) string { return c.Gateway.Token }},
	{"AIPROXY_URL", func(c *Config) string { return c.Gateway.BaseURL }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Gateway.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Gateway.Dimensions) }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"GITHUB_REPO", func(c *Config) string { return c.Sources.GitHub.Repo }},
	{"GITHUB_DIR", func(c *Config) string { return c.Sources.GitHub.Dir }},
	{"GITHUB_TOKEN", func(c *Config) string { return c.Sources.GitHub.Token }},
	{"DISCOURSE_URL", func(c *Config) string { return c.Sources.Discourse.URL }},
	{"DISCOURSE_CATEGORY", func(c *Config) string { return c.Sources.Discourse.Category }},
	{"DISCOURSE_FALLBACK_CATEGORY_ID", func(c *Config) string { return intStr(c.Sources.Discourse.FallbackCategoryID) }},
	{"DISCOURSE_T_COOKIE", func(c *Config) string { return c.Sources.Discourse.TCookie }},
	{"DISCOURSE_SESSION_COOKIE", func(c *Config) string { return c.Sources.Discourse.SessionCookie }},
	{"COURSETA_DB", func(c *Config) string { return c.Store.DBPath }},
	{"INDEX_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"QDRANT_HOST", func(c *Config) string { return c.Index.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Index.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Index.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Index.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Index.Qdrant.TLS) }},
	{"COURSETA_HOST", func(c *Config) string { return c.Server.Host }},
	{"COURSETA_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"COURSETA_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("COURSETA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".courseta", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("courseta.yaml"); err == nil {
		return "courseta.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
