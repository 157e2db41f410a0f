package clock

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClockServer_MCPClient exercises the clock server end to end with the
// modelcontextprotocol go-sdk client over an in-process pipe.
func TestClockServer_MCPClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mcpServer := NewServer()
	stdioServer := server.NewStdioServer(mcpServer)

	serverReader, clientWriter := io.Pipe()
	clientReader, serverWriter := io.Pipe()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- stdioServer.Listen(ctx, serverReader, serverWriter)
	}()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	transport := &sdkmcp.IOTransport{
		Reader: clientReader,
		Writer: clientWriter,
	}

	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err, "failed to connect client to server")
	defer session.Close()

	listResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err, "failed to list tools")

	names := make([]string, 0, len(listResult.Tools))
	for _, tool := range listResult.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "get_current_time")
	assert.Contains(t, names, "convert_time")

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name: "convert_time",
		Arguments: map[string]any{
			"time":            "12:00",
			"source_timezone": "UTC",
			"target_timezone": "Asia/Tokyo",
		},
	})
	require.NoError(t, err, "failed to call convert_time")
	require.False(t, result.IsError, "tool call should not return an error")
	require.NotEmpty(t, result.Content)

	textContent, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "content should be TextContent")
	assert.Equal(t, "12:00 in UTC is 21:00 in Asia/Tokyo", textContent.Text)

	result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "get_current_time",
		Arguments: map[string]any{"timezone": "UTC"},
	})
	require.NoError(t, err, "failed to call get_current_time")
	require.False(t, result.IsError)
	textContent, ok = result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, textContent.Text, "The current time in UTC is")

	cancel()
	clientWriter.Close()
	serverWriter.Close()
}
