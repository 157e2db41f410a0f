// Package chat implements the conversation surface: the connect and list
// commands, proactive server recommendations, and delegation of everything
// else to the session's agent.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/internal/event"
	"github.com/toolscout-ai/toolscout/internal/registry"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// DefaultTokenDelay paces streamed tokens so replies read as live typing.
const DefaultTokenDelay = 20 * time.Millisecond

// Catalog supplies the current server list.
type Catalog interface {
	Servers(ctx context.Context, useCache bool) types.CatalogSnapshot
}

// Connector performs connection attempts on behalf of a session.
type Connector interface {
	Connect(ctx context.Context, sess connect.Session, catalog types.CatalogSnapshot, name string) connect.Outcome
}

// Recommender proposes servers for a chat message.
type Recommender interface {
	Recommend(ctx context.Context, sess *registry.Session, query string) []types.ServerDescriptor
}

// Handler routes a chat turn to the right behavior.
type Handler struct {
	catalog     Catalog
	connector   Connector
	recommender Recommender
	buildAgent  registry.AgentBuilder
	bus         *event.Bus
	tokenDelay  time.Duration
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithTokenDelay overrides the streaming pace. Zero disables pacing.
func WithTokenDelay(d time.Duration) HandlerOption {
	return func(h *Handler) { h.tokenDelay = d }
}

// NewHandler wires the chat surface. bus may be nil when no one listens.
func NewHandler(catalog Catalog, connector Connector, recommender Recommender, buildAgent registry.AgentBuilder, bus *event.Bus, opts ...HandlerOption) *Handler {
	h := &Handler{
		catalog:     catalog,
		connector:   connector,
		recommender: recommender,
		buildAgent:  buildAgent,
		bus:         bus,
		tokenDelay:  DefaultTokenDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleTurn processes one user message and returns the reply text.
//
// Turn order: explicit commands first, then a recommendation check, then the
// agent. When fresh recommendations exist the turn stops there, so the user
// can decide whether to connect before the agent answers without the tools.
func (h *Handler) HandleTurn(ctx context.Context, sess *registry.Session, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "connect ") {
		name := strings.TrimSpace(trimmed[len("connect "):])
		return h.handleConnect(ctx, sess, name), nil
	}

	switch lower {
	case "list servers", "list connected", "servers", "connected":
		return formatConnectedList(sess.Connections()), nil
	}

	if recs := h.recommender.Recommend(ctx, sess, trimmed); len(recs) > 0 {
		h.publish(event.RecommendationSent, event.RecommendationSentData{
			SessionID: sess.ID,
			Servers:   serverNames(recs),
		})
		return formatRecommendations(recs), nil
	}

	return h.handleAgentTurn(ctx, sess, trimmed)
}

// handleConnect resolves and dials the named server for the session.
func (h *Handler) handleConnect(ctx context.Context, sess *registry.Session, name string) string {
	snapshot := h.catalog.Servers(ctx, true)
	outcome := h.connector.Connect(ctx, sess, snapshot, name)

	if outcome.Kind == connect.KindConnected {
		h.publish(event.ServerConnected, event.ServerConnectedData{
			SessionID: sess.ID,
			Server:    outcome.Server.Name,
			ToolCount: len(outcome.Tools),
		})
	}

	return formatOutcome(outcome)
}

// handleAgentTurn runs the conversation through the session's agent.
func (h *Handler) handleAgentTurn(ctx context.Context, sess *registry.Session, text string) (string, error) {
	agent, err := sess.Agent(ctx, h.buildAgent)
	if err != nil {
		return "", err
	}

	sess.AppendHistory(schema.UserMessage(text))

	reply, err := agent.Run(ctx, sess.History())
	if err != nil {
		return "", err
	}
	sess.AppendHistory(schema.AssistantMessage(reply, nil))

	h.streamTokens(sess.ID, reply)
	h.publish(event.MessageSent, event.MessageSentData{SessionID: sess.ID, Text: reply})

	return reply, nil
}

// streamTokens publishes the reply word by word with a small delay between
// tokens.
func (h *Handler) streamTokens(sessionID, reply string) {
	if h.bus == nil {
		return
	}
	for _, word := range strings.Fields(reply) {
		h.publish(event.MessageToken, event.MessageTokenData{
			SessionID: sessionID,
			Token:     word + " ",
		})
		if h.tokenDelay > 0 {
			time.Sleep(h.tokenDelay)
		}
	}
}

// publish delivers synchronously so token events keep their order.
func (h *Handler) publish(eventType event.EventType, data any) {
	if h.bus == nil {
		return
	}
	h.bus.PublishSync(event.Event{Type: eventType, Data: data})
}

func serverNames(servers []types.ServerDescriptor) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.Name
	}
	return out
}
