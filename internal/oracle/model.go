// Package oracle builds Eino chat models from configuration and runs the
// agentic loop on top of them. A model reference is a "provider/model" string,
// e.g. "openai/gpt-4o-mini" or "anthropic/claude-3-5-haiku-20241022".
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// DefaultMaxTokens caps completion length when the config does not say.
const DefaultMaxTokens = 4096

// ParseModelRef splits a "provider/model" reference. A bare model name
// defaults to the openai provider.
func ParseModelRef(ref string) (providerID, modelID string) {
	if i := strings.Index(ref, "/"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "openai", ref
}

// NewChatModel creates the chat model named by ref using the provider
// credentials in cfg.
func NewChatModel(ctx context.Context, ref string, cfg *types.Config) (model.ToolCallingChatModel, error) {
	providerID, modelID := ParseModelRef(ref)
	if modelID == "" {
		return nil, fmt.Errorf("model reference %q has no model id", ref)
	}

	provider := cfg.Provider[providerID]
	if provider.Disable {
		return nil, fmt.Errorf("provider %q is disabled", providerID)
	}

	switch providerID {
	case "openai":
		if provider.APIKey == "" {
			return nil, fmt.Errorf("provider %q: API key not configured", providerID)
		}
		maxTokens := DefaultMaxTokens
		conf := &openai.ChatModelConfig{
			APIKey:              provider.APIKey,
			Model:               modelID,
			MaxCompletionTokens: &maxTokens,
		}
		if provider.BaseURL != "" {
			conf.BaseURL = provider.BaseURL
		}
		chatModel, err := openai.NewChatModel(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return chatModel, nil

	case "anthropic", "claude":
		if provider.APIKey == "" {
			return nil, fmt.Errorf("provider %q: API key not configured", providerID)
		}
		conf := &claude.Config{
			APIKey:    provider.APIKey,
			Model:     modelID,
			MaxTokens: DefaultMaxTokens,
		}
		if provider.BaseURL != "" {
			conf.BaseURL = &provider.BaseURL
		}
		chatModel, err := claude.NewChatModel(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("create claude model: %w", err)
		}
		return chatModel, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}
}
