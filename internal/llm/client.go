package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"visa-rag/internal/config"
	"visa-rag/internal/models"
)

// Client sends composed prompts to a remote chat-completion API.
type Client struct {
	model llms.Model
	name  string
}

func NewClient(ctx context.Context, llmCfg *config.LLMConfig) (*Client, error) {
	log.Debug().
		Str("provider", llmCfg.Provider).
		Str("model", llmCfg.Model).
		Msg("Initializing LLM client")

	var model llms.Model
	var err error
	switch llmCfg.Provider {
	case "googleai":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(llmCfg.Key),
			googleai.WithDefaultModel(llmCfg.Model),
		)
	case "openai":
		model, err = openai.New(
			openai.WithBaseURL(llmCfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmCfg.Key, "Bearer ")),
			openai.WithModel(llmCfg.Model),
		)
	case "ollama":
		model, err = ollama.New(
			ollama.WithServerURL(llmCfg.BaseURL),
			ollama.WithModel(llmCfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", llmCfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s client: %w", llmCfg.Provider, err)
	}
	return &Client{model: model, name: llmCfg.Provider}, nil
}

// Generate performs a single synchronous chat-completion call. Network,
// auth, and rate-limit failures come back as UpstreamError; the caller
// renders them inline without retrying.
func (c *Client) Generate(ctx context.Context, promptText string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: promptText}},
		},
	}

	res, err := c.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", &models.UpstreamError{Op: c.name + " generate", Err: err}
	}
	if len(res.Choices) == 0 {
		return "", &models.UpstreamError{Op: c.name + " generate", Err: errors.New("empty response")}
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}
