package chat

import (
	"fmt"
	"strings"

	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// formatOutcome renders a connection attempt result for the user.
func formatOutcome(o connect.Outcome) string {
	switch o.Kind {
	case connect.KindConnected:
		return fmt.Sprintf("✅ **Successfully connected to `%s` MCP server!**\n\n📦 **%s available:**\n%s",
			o.Server.Name, countTools(len(o.Tools)), connect.SummarizeTools(o.Tools))
	case connect.KindAlreadyConnected:
		return fmt.Sprintf("ℹ️ Server '%s' is already connected.", o.Server.Name)
	case connect.KindNotFound:
		return fmt.Sprintf("❌ Server '%s' not found.", o.Server.Name)
	case connect.KindFailed:
		return fmt.Sprintf("⚠️ Failed to connect to `%s` MCP: %v", o.Server.Name, o.Err)
	default:
		return fmt.Sprintf("⚠️ Unexpected result connecting to '%s'.", o.Server.Name)
	}
}

// formatConnectedList renders the session's connected servers.
func formatConnectedList(conns []*connect.Connection) string {
	if len(conns) == 0 {
		return "ℹ️ **No MCP servers connected.**\n\nAsk me something and I'll recommend some servers that could help!"
	}

	parts := []string{"📋 **Connected MCP Servers:**\n"}
	for i, c := range conns {
		// A connection can outlive its server process; report it without
		// failing the whole listing.
		toolText := "tools (unavailable)"
		if c.Conn != nil {
			toolText = countTools(len(c.Conn.Tools()))
		}
		parts = append(parts, fmt.Sprintf("%d. **%s** — %s", i+1, c.Server.Name, toolText))
	}
	return strings.Join(parts, "\n")
}

// formatRecommendations renders a recommendation batch with connect hints.
func formatRecommendations(servers []types.ServerDescriptor) string {
	parts := []string{"💡 **I think these MCP servers could help with your query:**\n"}

	for i, s := range servers {
		parts = append(parts, fmt.Sprintf("%d. **%s**\n   %s", i+1, s.Name, s.Description))
	}

	if len(servers) == 1 {
		parts = append(parts, fmt.Sprintf("\n💬 To connect this server, type: `connect %s`\n", servers[0].Name))
	} else {
		examples := make([]string, 0, 3)
		for i, s := range servers {
			if i == 3 {
				break
			}
			examples = append(examples, fmt.Sprintf("`connect %s`", s.Name))
		}
		hint := strings.Join(examples, ", ")
		if len(servers) > 3 {
			hint += fmt.Sprintf(", or `connect %s`", servers[3].Name)
		}
		parts = append(parts, fmt.Sprintf("\n💬 To connect a server, type: %s\n", hint))
	}

	parts = append(parts, "ℹ️ I can still help with your query, but connecting a server will give me more capabilities!")
	return strings.Join(parts, "\n")
}

func countTools(n int) string {
	if n == 1 {
		return "1 tool"
	}
	return fmt.Sprintf("%d tools", n)
}
