package registry

import (
	"context"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/internal/oracle"
)

// AgentBuilder constructs an agent over the session's current tool set. The
// session caches the result until its connections change.
type AgentBuilder func(ctx context.Context, tools []einotool.InvokableTool) (*oracle.Agent, error)

// Session is one conversation's state.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	connections map[string]*connect.Connection
	order       []string
	recommended map[string]bool
	history     []*schema.Message
	agent       *oracle.Agent
	agentStale  bool
}

func newSession(id string) *Session {
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		connections: make(map[string]*connect.Connection),
		recommended: make(map[string]bool),
	}
}

// Connected reports whether the named server is held by this session.
func (s *Session) Connected(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.connections[name]
	return ok
}

// AddConnection stores an established connection and invalidates the cached
// agent so the next turn sees the new tools.
func (s *Session) AddConnection(conn *connect.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := conn.Server.Name
	if _, ok := s.connections[name]; !ok {
		s.order = append(s.order, name)
	}
	s.connections[name] = conn
	s.agentStale = true
}

// Connections returns the session's connections in connect order.
func (s *Session) Connections() []*connect.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*connect.Connection, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.connections[name])
	}
	return out
}

// WasRecommended reports whether the server was already offered this session.
func (s *Session) WasRecommended(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recommended[name]
}

// MarkRecommended records servers as offered so they are not repeated.
func (s *Session) MarkRecommended(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.recommended[name] = true
	}
}

// History returns a copy of the conversation so far.
func (s *Session) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*schema.Message, len(s.history))
	copy(out, s.history)
	return out
}

// AppendHistory adds messages to the conversation.
func (s *Session) AppendHistory(msgs ...*schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

// Agent returns the session's agent, rebuilding it when connections have
// changed since the last build.
func (s *Session) Agent(ctx context.Context, build AgentBuilder) (*oracle.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent != nil && !s.agentStale {
		return s.agent, nil
	}

	var tools []einotool.InvokableTool
	for _, name := range s.order {
		tools = append(tools, s.connections[name].EinoTools()...)
	}

	agent, err := build(ctx, tools)
	if err != nil {
		return nil, err
	}

	s.agent = agent
	s.agentStale = false
	return agent, nil
}

// Close closes every connection the session holds.
func (s *Session) Close() {
	s.mu.Lock()
	conns := make([]*connect.Connection, 0, len(s.connections))
	for _, conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connections = make(map[string]*connect.Connection)
	s.order = nil
	s.agent = nil
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
