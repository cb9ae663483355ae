package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/DGMadMax/mcp-rbac/config"
)

// Provider produces dense vectors for text.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetProviderType() string
}

// NewProvider builds a provider from configuration. All supported providers
// speak the OpenAI embeddings API; dashscope and qwen only differ in base URL.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "dashscope", "qwen":
		return newOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

type openAIProvider struct {
	client       openai.Client
	providerType string
	model        string
	dimensions   int
}

func newOpenAIProvider(cfg config.EmbeddingConfig) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIProvider{
		client:       openai.NewClient(opts...),
		providerType: strings.ToLower(cfg.Provider),
		model:        cfg.Model,
		dimensions:   cfg.Dimensions,
	}
}

func (p *openAIProvider) GetProviderType() string { return p.providerType }

func (p *openAIProvider) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dimensions > 0 {
		params.Dimensions = openai.Int(int64(p.dimensions))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
