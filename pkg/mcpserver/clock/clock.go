// Package clock provides an MCP server with time tools. It backs the
// builtin "clock" catalog entry so the whole connect flow can run locally.
package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with clock tools.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"clock",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	currentTimeTool := mcp.NewTool("get_current_time",
		mcp.WithDescription("Get the current time in a given time zone"),
		mcp.WithString("timezone",
			mcp.Description("IANA time zone name (e.g. Asia/Tokyo). Defaults to UTC."),
		),
	)
	s.AddTool(currentTimeTool, currentTimeHandler)

	convertTool := mcp.NewTool("convert_time",
		mcp.WithDescription("Convert a time of day between two time zones"),
		mcp.WithString("time",
			mcp.Required(),
			mcp.Description("Time of day in 24h HH:MM format"),
		),
		mcp.WithString("source_timezone",
			mcp.Required(),
			mcp.Description("IANA time zone the time is given in"),
		),
		mcp.WithString("target_timezone",
			mcp.Required(),
			mcp.Description("IANA time zone to convert to"),
		),
	)
	s.AddTool(convertTool, convertTimeHandler)

	return s
}

// currentTimeHandler handles the get_current_time tool call.
func currentTimeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	zone := "UTC"
	if v, ok := args["timezone"].(string); ok && v != "" {
		zone = v
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown time zone %q: %v", zone, err)), nil
	}

	now := time.Now().In(loc)
	return mcp.NewToolResultText(fmt.Sprintf("The current time in %s is %s", zone, now.Format("15:04:05 on 2006-01-02"))), nil
}

// convertTimeHandler handles the convert_time tool call.
func convertTimeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	timeStr, ok := args["time"].(string)
	if !ok || timeStr == "" {
		return mcp.NewToolResultError("time argument is required"), nil
	}
	source, ok := args["source_timezone"].(string)
	if !ok || source == "" {
		return mcp.NewToolResultError("source_timezone argument is required"), nil
	}
	target, ok := args["target_timezone"].(string)
	if !ok || target == "" {
		return mcp.NewToolResultError("target_timezone argument is required"), nil
	}

	srcLoc, err := time.LoadLocation(source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown time zone %q: %v", source, err)), nil
	}
	tgtLoc, err := time.LoadLocation(target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown time zone %q: %v", target, err)), nil
	}

	parsed, err := time.Parse("15:04", timeStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid time %q, expected HH:MM: %v", timeStr, err)), nil
	}

	// Anchor the conversion on today's date in the source zone.
	now := time.Now().In(srcLoc)
	src := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, srcLoc)
	tgt := src.In(tgtLoc)

	return mcp.NewToolResultText(fmt.Sprintf("%s in %s is %s in %s",
		src.Format("15:04"), source, tgt.Format("15:04"), target)), nil
}
