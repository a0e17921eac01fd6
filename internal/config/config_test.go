package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"visa-rag/internal/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.EmbedLLM.Provider != "googleai" || cfg.ChatLLM.Provider != "googleai" {
		t.Errorf("default providers: %s / %s", cfg.EmbedLLM.Provider, cfg.ChatLLM.Provider)
	}
	if cfg.ChatLLM.Model != "gemini-2.5-flash" {
		t.Errorf("default chat model: %s", cfg.ChatLLM.Model)
	}
	if cfg.RAG.TopK != models.DefaultTopK {
		t.Errorf("default top_k: %d", cfg.RAG.TopK)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9999
embed_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
chat_llm:
  provider: ollama
  base_url: http://localhost:11434
  model: llama3.1
rag:
  top_k: 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.RAG.TopK != 5 {
		t.Errorf("top_k: got %d", cfg.RAG.TopK)
	}
	if cfg.RAG.DataDir == "" {
		t.Error("data_dir default not applied")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestValidateMissingGoogleKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected config error when GOOGLE_API_KEY is unset")
	}
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestValidateResolvesKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.EmbedLLM.Key != "test-key" || cfg.ChatLLM.Key != "test-key" {
		t.Error("keys not resolved from environment")
	}
}

func TestValidateOllamaNeedsNoKey(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "ollama"},
		ChatLLM:  LLMConfig{Provider: "ollama"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := &Config{
		EmbedLLM: LLMConfig{Provider: "mystery"},
		ChatLLM:  LLMConfig{Provider: "ollama"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
