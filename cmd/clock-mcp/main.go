// Command clock-mcp runs the clock MCP server over stdio.
// It backs the builtin "clock" catalog entry.
package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/toolscout-ai/toolscout/pkg/mcpserver/clock"
)

func main() {
	s := clock.NewServer()
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
