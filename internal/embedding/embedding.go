package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"visa-rag/internal/config"
)

// QueryEmbedder converts text into a fixed-length vector. Satisfied by
// langchaingo's EmbedderImpl and by the mock used in tests.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder for the configured provider. Embeddings
// are deterministic for a fixed model version; construction failure is
// fatal at startup for the caller.
func NewEmbedder(ctx context.Context, llmCfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().
		Str("provider", llmCfg.Provider).
		Str("model", llmCfg.Model).
		Str("base_url", llmCfg.BaseURL).
		Msg("Initializing embedder")

	switch llmCfg.Provider {
	case "googleai":
		llm, err := googleai.New(ctx,
			googleai.WithAPIKey(llmCfg.Key),
			googleai.WithDefaultEmbeddingModel(llmCfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize googleai embedder: %w", err)
		}
		return embeddings.NewEmbedder(llm)
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(llmCfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmCfg.Key, "Bearer ")),
			openai.WithModel(llmCfg.Model),
			openai.WithEmbeddingModel(llmCfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize openai embedder: %w", err)
		}
		return embeddings.NewEmbedder(llm)
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(llmCfg.BaseURL),
			ollama.WithModel(llmCfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize ollama embedder: %w", err)
		}
		return embeddings.NewEmbedder(llm)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", llmCfg.Provider)
	}
}
