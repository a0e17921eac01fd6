package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"visa-rag/internal/models"
)

// LLMConfig configures one langchaingo backend (embedding or chat).
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	KeyEnv   string `yaml:"key_env"`
	Key      string `yaml:"-"`
}

type RAGConfig struct {
	DataDir        string `yaml:"data_dir"`
	Collection     string `yaml:"collection"`
	TopK           int    `yaml:"top_k"`
	MaxPromptChars int    `yaml:"max_prompt_chars"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RulesConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Server   ServerConfig `yaml:"server"`
	Rules    RulesConfig  `yaml:"rules"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	ChatLLM  LLMConfig    `yaml:"chat_llm"`
	RAG      RAGConfig    `yaml:"rag"`
}

// LoadConfig reads the YAML config. A missing file returns defaults so the
// binary runs with just GOOGLE_API_KEY set.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = "./data/visa_rules.json"
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "googleai"
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "embedding-001"
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = "googleai"
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "gemini-2.5-flash"
	}
	if cfg.RAG.DataDir == "" {
		cfg.RAG.DataDir = "./data/chromem"
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = "visa_rules"
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = models.DefaultTopK
	}
	if cfg.RAG.MaxPromptChars == 0 {
		cfg.RAG.MaxPromptChars = 12000
	}
	if cfg.RAG.MaxUploadBytes == 0 {
		cfg.RAG.MaxUploadBytes = 10 << 20
	}
}

// Validate resolves API keys from the environment. A missing credential for
// a provider that needs one is a ConfigError; the process must not serve.
func (cfg *Config) Validate() error {
	if err := resolveKey(&cfg.EmbedLLM, "embed_llm"); err != nil {
		return err
	}
	return resolveKey(&cfg.ChatLLM, "chat_llm")
}

func resolveKey(llm *LLMConfig, section string) error {
	switch llm.Provider {
	case "googleai":
		if llm.KeyEnv == "" {
			llm.KeyEnv = "GOOGLE_API_KEY"
		}
	case "openai":
		if llm.KeyEnv == "" {
			llm.KeyEnv = "OPENAI_API_KEY"
		}
	case "ollama":
		// local server, no credential
		return nil
	default:
		return &models.ConfigError{Msg: fmt.Sprintf("%s: unknown provider %q", section, llm.Provider)}
	}
	llm.Key = os.Getenv(llm.KeyEnv)
	if llm.Key == "" {
		return &models.ConfigError{Msg: fmt.Sprintf("%s: environment variable %s is not set", section, llm.KeyEnv)}
	}
	return nil
}
