package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/toolscout-ai/toolscout/internal/logging"
)

const (
	// MaxSteps is the maximum number of tool-calling loop iterations.
	MaxSteps = 10
	// MaxRetries is the maximum number of retries for API errors.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 15 * time.Second
)

// Agent runs the tool-calling loop over a chat model. The agent is stateless:
// conversation history is supplied per call, tool bindings are fixed at
// construction.
type Agent struct {
	chatModel model.ToolCallingChatModel
	system    string
	byName    map[string]einotool.InvokableTool
}

// NewAgent binds the given tools to the chat model. Tool metadata is resolved
// eagerly so a malformed tool fails here rather than mid-conversation.
func NewAgent(ctx context.Context, chatModel model.ToolCallingChatModel, system string, tools []einotool.InvokableTool) (*Agent, error) {
	byName := make(map[string]einotool.InvokableTool, len(tools))
	infos := make([]*schema.ToolInfo, 0, len(tools))

	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve tool info: %w", err)
		}
		infos = append(infos, info)
		byName[info.Name] = t
	}

	bound := chatModel
	if len(infos) > 0 {
		var err error
		bound, err = chatModel.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
	}

	return &Agent{
		chatModel: bound,
		system:    system,
		byName:    byName,
	}, nil
}

// ToolCount returns how many tools are bound to the agent.
func (a *Agent) ToolCount() int {
	return len(a.byName)
}

// Run completes the conversation, executing tool calls until the model stops
// requesting them, and returns the final assistant text.
func (a *Agent) Run(ctx context.Context, history []*schema.Message) (string, error) {
	messages := make([]*schema.Message, 0, len(history)+1)
	if a.system != "" {
		messages = append(messages, schema.SystemMessage(a.system))
	}
	messages = append(messages, history...)

	for step := 0; step < MaxSteps; step++ {
		resp, err := a.generate(ctx, messages)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, resp)
		for _, call := range resp.ToolCalls {
			messages = append(messages, schema.ToolMessage(a.execute(ctx, call), call.ID))
		}
	}

	return "", fmt.Errorf("tool loop exceeded %d steps", MaxSteps)
}

// generate calls the model with exponential-backoff retries on API errors.
func (a *Agent) generate(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)

	var resp *schema.Message
	op := func() error {
		var err error
		resp, err = a.chatModel.Generate(ctx, messages)
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return resp, nil
}

// execute runs a single tool call. Tool failures are reported back to the
// model as content rather than aborting the loop.
func (a *Agent) execute(ctx context.Context, call schema.ToolCall) string {
	t, ok := a.byName[call.Function.Name]
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Function.Name)
	}

	out, err := t.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		log := logging.Component("oracle")
		log.Warn().
			Str("tool", call.Function.Name).
			Err(err).
			Msg("tool call failed")
		return "Error: " + err.Error()
	}
	return out
}
