package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/DGMadMax/mcp-rbac/config"
)

// Provider generates chat completions.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
	GetProviderType() string
}

// NewProvider builds a provider from configuration. dashscope and qwen are
// OpenAI-compatible endpoints.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "dashscope", "qwen":
		return newOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

type openAIProvider struct {
	client       openai.Client
	providerType string
	cfg          config.LLMConfig
}

func newOpenAIProvider(cfg config.LLMConfig) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIProvider{
		client:       openai.NewClient(opts...),
		providerType: strings.ToLower(cfg.Provider),
		cfg:          cfg,
	}
}

func (p *openAIProvider) GetProviderType() string { return p.providerType }

func (p *openAIProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: shared.ChatModel(p.cfg.Model),
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = openai.Float(p.cfg.Temperature)
	}
	if p.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.MaxTokens))
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
