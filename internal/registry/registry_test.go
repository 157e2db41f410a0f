package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/internal/oracle"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// stubConn satisfies connect.Conn and records Close.
type stubConn struct {
	closed bool
}

func (c *stubConn) Tools() []connect.Tool { return nil }

func (c *stubConn) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	return "", errors.New("not implemented")
}

func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

// stubModel is the minimal chat model needed to build agents in tests.
type stubModel struct{}

func (stubModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage("ok", nil), nil
}

func (stubModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m stubModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func newConnection(name string) *connect.Connection {
	return &connect.Connection{
		Server: types.ServerDescriptor{Name: name},
		Conn:   &stubConn{},
		Tools:  []connect.Tool{{Name: "do_" + name}},
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := New()

	a := r.Create()
	b := r.Create()

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Count())

	got, ok := r.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := New()

	a := r.GetOrCreate("cli")
	b := r.GetOrCreate("cli")

	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RemoveClosesConnections(t *testing.T) {
	r := New()
	sess := r.Create()

	conn := newConnection("time")
	sess.AddConnection(conn)

	r.Remove(sess.ID)

	assert.Equal(t, 0, r.Count())
	assert.True(t, conn.Conn.(*stubConn).closed)
}

func TestSession_Connections(t *testing.T) {
	sess := newSession("s1")

	assert.False(t, sess.Connected("time"))

	sess.AddConnection(newConnection("time"))
	sess.AddConnection(newConnection("fetch"))

	assert.True(t, sess.Connected("time"))
	assert.False(t, sess.Connected("slack"))

	conns := sess.Connections()
	require.Len(t, conns, 2)
	assert.Equal(t, "time", conns[0].Server.Name)
	assert.Equal(t, "fetch", conns[1].Server.Name)

	// Re-adding the same server replaces it without duplicating the order.
	sess.AddConnection(newConnection("time"))
	assert.Len(t, sess.Connections(), 2)
}

func TestSession_Recommended(t *testing.T) {
	sess := newSession("s1")

	assert.False(t, sess.WasRecommended("time"))
	sess.MarkRecommended("time", "fetch")
	assert.True(t, sess.WasRecommended("time"))
	assert.True(t, sess.WasRecommended("fetch"))
	assert.False(t, sess.WasRecommended("slack"))
}

func TestSession_History(t *testing.T) {
	sess := newSession("s1")

	sess.AppendHistory(schema.UserMessage("hello"))
	sess.AppendHistory(schema.AssistantMessage("hi", nil))

	history := sess.History()
	require.Len(t, history, 2)

	// The returned slice is a copy.
	history[0] = schema.UserMessage("mutated")
	assert.Equal(t, "hello", sess.History()[0].Content)
}

func TestSession_AgentCaching(t *testing.T) {
	sess := newSession("s1")
	ctx := context.Background()

	builds := 0
	var lastTools []einotool.InvokableTool
	build := func(ctx context.Context, tools []einotool.InvokableTool) (*oracle.Agent, error) {
		builds++
		lastTools = tools
		return oracle.NewAgent(ctx, stubModel{}, "", tools)
	}

	first, err := sess.Agent(ctx, build)
	require.NoError(t, err)
	second, err := sess.Agent(ctx, build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
	assert.Empty(t, lastTools)

	// A new connection invalidates the cache and exposes its tools.
	sess.AddConnection(newConnection("time"))

	third, err := sess.Agent(ctx, build)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, builds)
	assert.Len(t, lastTools, 1)
	assert.Equal(t, 1, third.ToolCount())
}

func TestSession_AgentBuildError(t *testing.T) {
	sess := newSession("s1")
	buildErr := errors.New("no api key")

	_, err := sess.Agent(context.Background(), func(ctx context.Context, tools []einotool.InvokableTool) (*oracle.Agent, error) {
		return nil, buildErr
	})
	assert.ErrorIs(t, err, buildErr)

	// Errors are not cached; a later successful build works.
	agent, err := sess.Agent(context.Background(), func(ctx context.Context, tools []einotool.InvokableTool) (*oracle.Agent, error) {
		return oracle.NewAgent(ctx, stubModel{}, "", tools)
	})
	require.NoError(t, err)
	assert.NotNil(t, agent)
}

func TestRegistry_Close(t *testing.T) {
	r := New()

	s1 := r.Create()
	s2 := r.Create()
	c1 := newConnection("time")
	c2 := newConnection("fetch")
	s1.AddConnection(c1)
	s2.AddConnection(c2)

	r.Close()

	assert.Equal(t, 0, r.Count())
	assert.True(t, c1.Conn.(*stubConn).closed)
	assert.True(t, c2.Conn.(*stubConn).closed)
}
