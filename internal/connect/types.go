// Package connect manages live connections to tool servers. Connecting is
// always explicit: the manager resolves a server by name from the catalog,
// dials it over the transport the descriptor names, verifies it responds, and
// hands the resulting connection to the owning session.
package connect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// Tool is a capability advertised by a connected server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Conn is an established server connection. Implementations must be safe for
// concurrent use.
type Conn interface {
	// Tools returns the capabilities listed during the handshake.
	Tools() []Tool
	// Call invokes a tool by its unprefixed name.
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
	// Close tears the connection down.
	Close() error
}

// Dialer establishes connections. The production dialer speaks MCP; tests
// substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, desc types.ServerDescriptor) (Conn, error)
}

// Connection pairs a live Conn with the descriptor it was dialed from.
type Connection struct {
	Server types.ServerDescriptor
	Conn   Conn
	Tools  []Tool
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}

// OutcomeKind classifies connection attempt results.
type OutcomeKind string

const (
	// KindConnected means a new connection was established.
	KindConnected OutcomeKind = "connected"
	// KindAlreadyConnected means the session already holds this server.
	KindAlreadyConnected OutcomeKind = "already_connected"
	// KindNotFound means no catalog entry matched the requested name.
	KindNotFound OutcomeKind = "not_found"
	// KindFailed means the dial or handshake failed.
	KindFailed OutcomeKind = "failed"
)

// Outcome is the explicit result of a connection attempt. Err is set only for
// KindFailed; Tools is set only for KindConnected.
type Outcome struct {
	Kind   OutcomeKind
	Server types.ServerDescriptor
	Tools  []Tool
	Err    error
}

// maxSummaryTools bounds how many capability names a summary spells out.
const maxSummaryTools = 10

// SummarizeTools renders a short capability list: up to ten tool names, with
// an overflow count for the rest.
func SummarizeTools(tools []Tool) string {
	if len(tools) == 0 {
		return "no tools"
	}

	names := make([]string, 0, maxSummaryTools)
	for i, t := range tools {
		if i == maxSummaryTools {
			break
		}
		names = append(names, t.Name)
	}

	out := strings.Join(names, ", ")
	if extra := len(tools) - maxSummaryTools; extra > 0 {
		out += fmt.Sprintf(" and %d more", extra)
	}
	return out
}
