package index

import (
	"context"
	"fmt"

	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// NewEmbedder builds the embedding client from config. Only OpenAI-compatible
// embedding endpoints are supported; the provider's BaseURL override applies,
// which covers proxies and self-hosted gateways.
func NewEmbedder(ctx context.Context, cfg *types.Config) (embedding.Embedder, error) {
	provider := cfg.Provider["openai"]
	if provider.APIKey == "" {
		return nil, fmt.Errorf("embedding model %q requires an openai API key", cfg.EmbeddingModel)
	}

	conf := &openaiembed.EmbeddingConfig{
		APIKey: provider.APIKey,
		Model:  cfg.EmbeddingModel,
	}
	if provider.BaseURL != "" {
		conf.BaseURL = provider.BaseURL
	}

	embedder, err := openaiembed.NewEmbedder(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}
