package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// sdkDialer dials servers with the official MCP SDK.
type sdkDialer struct {
	client *sdkmcp.Client
}

// NewSDKDialer creates the production dialer, announcing itself with the
// given client name and version during the MCP handshake.
func NewSDKDialer(name, version string) Dialer {
	return &sdkDialer{
		client: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
	}
}

// Dial connects to the server described by desc. Stdio servers are spawned
// from the descriptor's command line; HTTP servers are tried over the
// streamable transport first, then SSE.
func (d *sdkDialer) Dial(ctx context.Context, desc types.ServerDescriptor) (Conn, error) {
	switch desc.Type {
	case types.TransportStdio, "":
		parts := strings.Fields(desc.Command)
		if len(parts) == 0 {
			return nil, fmt.Errorf("server %q has an empty command", desc.Name)
		}

		cmd := exec.Command(parts[0], parts[1:]...)
		cmd.Env = os.Environ()

		return d.connect(ctx, &sdkmcp.CommandTransport{Command: cmd})

	case types.TransportHTTP:
		if desc.URL == "" {
			return nil, fmt.Errorf("server %q has no URL", desc.Name)
		}

		transports := []struct {
			name      string
			transport sdkmcp.Transport
		}{
			{name: "streamable", transport: &sdkmcp.StreamableClientTransport{Endpoint: desc.URL}},
			{name: "sse", transport: &sdkmcp.SSEClientTransport{Endpoint: desc.URL}},
		}

		var lastErr error
		for _, candidate := range transports {
			conn, err := d.connect(ctx, candidate.transport)
			if err != nil {
				lastErr = fmt.Errorf("%s transport: %w", candidate.name, err)
				continue
			}
			return conn, nil
		}
		return nil, lastErr

	default:
		return nil, fmt.Errorf("unknown transport type: %s", desc.Type)
	}
}

// connect establishes the session and verifies it answers a tool listing
// before handing it out.
func (d *sdkDialer) connect(ctx context.Context, transport sdkmcp.Transport) (Conn, error) {
	session, err := d.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]Tool, len(result.Tools))
	for i, t := range result.Tools {
		tools[i] = fromSDKTool(t)
	}

	return &sdkConn{session: session, tools: tools}, nil
}

func fromSDKTool(t *sdkmcp.Tool) Tool {
	schemaJSON, _ := json.Marshal(t.InputSchema)
	return Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schemaJSON,
	}
}

// sdkConn adapts an SDK client session to the Conn interface.
type sdkConn struct {
	mu      sync.Mutex
	session *sdkmcp.ClientSession
	tools   []Tool
}

func (c *sdkConn) Tools() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

func (c *sdkConn) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	if result.IsError {
		for _, content := range result.Content {
			if text, ok := content.(*sdkmcp.TextContent); ok {
				return "", fmt.Errorf("tool error: %s", text.Text)
			}
		}
		return "", fmt.Errorf("tool %s failed", tool)
	}

	var output strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			output.WriteString(text.Text)
		}
	}
	return output.String(), nil
}

func (c *sdkConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
