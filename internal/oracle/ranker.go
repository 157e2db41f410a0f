package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Ranker answers a single prompt with a single completion. The recommendation
// engine uses it to pick relevant servers; any implementation that returns
// plain text satisfies it.
type Ranker interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// LLMRanker is a Ranker backed by a chat model.
type LLMRanker struct {
	chatModel model.ToolCallingChatModel
}

// NewLLMRanker wraps a chat model as a Ranker.
func NewLLMRanker(chatModel model.ToolCallingChatModel) *LLMRanker {
	return &LLMRanker{chatModel: chatModel}
}

// Run sends the prompt as a single user message and returns the completion
// text.
func (r *LLMRanker) Run(ctx context.Context, prompt string) (string, error) {
	resp, err := r.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("ranker completion: %w", err)
	}
	return resp.Content, nil
}
