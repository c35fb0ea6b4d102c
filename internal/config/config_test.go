package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
gateway:
  model: text-embedding-3-small
  dimensions: 1536
model:
  provider: openai
  max_tokens: 2048
  temperature: 0.3
  openai:
    model: gpt-4o-mini
sources:
  github:
    repo: study-org/tds-course
    dir: content
  discourse:
    url: https://discourse.example.edu
    category: tools in data science
    fallback_category_id: 9
store:
  db_path: /var/lib/courseta/content.db
index:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    port: 6334
    collection: course-content
server:
  host: 0.0.0.0
  port: 8000
logging:
  level: debug
  format: text
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE", "OPENAI_MODEL",
		"GITHUB_REPO", "GITHUB_DIR",
		"DISCOURSE_URL", "DISCOURSE_CATEGORY", "DISCOURSE_FALLBACK_CATEGORY_ID",
		"COURSETA_DB", "INDEX_BACKEND",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"COURSETA_HOST", "COURSETA_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"EMBEDDING_MODEL":                "text-embedding-3-small",
		"EMBEDDING_DIMENSIONS":           "1536",
		"MODEL_PROVIDER":                 "openai",
		"MODEL_MAX_TOKENS":               "2048",
		"MODEL_TEMPERATURE":              "0.3",
		"OPENAI_MODEL":                   "gpt-4o-mini",
		"GITHUB_REPO":                    "study-org/tds-course",
		"GITHUB_DIR":                     "content",
		"DISCOURSE_URL":                  "https://discourse.example.edu",
		"DISCOURSE_CATEGORY":             "tools in data science",
		"DISCOURSE_FALLBACK_CATEGORY_ID": "9",
		"COURSETA_DB":                    "/var/lib/courseta/content.db",
		"INDEX_BACKEND":                  "qdrant",
		"QDRANT_HOST":                    "qdrant.internal",
		"QDRANT_PORT":                    "6334",
		"QDRANT_COLLECTION":              "course-content",
		"COURSETA_HOST":                  "0.0.0.0",
		"COURSETA_PORT":                  "8000",
		"LOG_LEVEL":                      "debug",
		"LOG_FORMAT":                     "text",
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("MODEL_PROVIDER", "openai")

	log := slog.Default()
	if _, err := Load(cfgPath, log); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "openai" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "openai", got)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("model: [not closed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath, slog.Default()); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}
