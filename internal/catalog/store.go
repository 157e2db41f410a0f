// Package catalog provides the registry of known MCP servers and a
// time-bounded cache of the assembled server list.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

// Store holds the curated server entries: a builtin list plus optional
// entries loaded from a YAML catalog file. Entries are immutable once loaded.
type Store struct {
	servers []types.ServerDescriptor
}

// NewStore creates a store with the builtin curated entries.
func NewStore() *Store {
	return &Store{servers: builtinServers()}
}

// NewStoreFromFile creates a store with builtin entries plus entries from a
// YAML catalog file. File entries override builtin entries with the same
// (case-insensitively compared) name.
func NewStoreFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file struct {
		Servers []types.ServerDescriptor `yaml:"servers"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	for i := range file.Servers {
		if file.Servers[i].Name == "" {
			return nil, fmt.Errorf("catalog file: entry %d has no name", i)
		}
		if file.Servers[i].Type == "" {
			file.Servers[i].Type = types.TransportStdio
		}
		if file.Servers[i].Source == "" {
			file.Servers[i].Source = "file"
		}
	}

	return &Store{servers: mergeByName(file.Servers, builtinServers())}, nil
}

// Servers returns all curated entries. The returned slice is a copy.
func (s *Store) Servers() []types.ServerDescriptor {
	out := make([]types.ServerDescriptor, len(s.servers))
	copy(out, s.servers)
	return out
}

// builtinServers returns the curated list of popular MCP servers that can be
// run locally.
func builtinServers() []types.ServerDescriptor {
	return []types.ServerDescriptor{
		{
			Name:        "fetch",
			Description: "Fetch webpages and return Markdown, HTML, or plain text.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-fetch",
			Source:      "local",
		},
		{
			Name:        "sqlite",
			Description: "Query and manage SQLite databases.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-sqlite --db-path ./db.sqlite",
			Source:      "local",
		},
		{
			Name:        "time",
			Description: "Get current time and convert time zones.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-time",
			Source:      "local",
		},
		{
			Name:        "filesystem",
			Description: "Browse and edit local files (limited to project directory).",
			Type:        types.TransportStdio,
			Command:     "npx --yes @modelcontextprotocol/server-filesystem .",
			Source:      "local",
		},
		{
			Name:        "github",
			Description: "Interact with GitHub repositories, issues, and pull requests.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-github",
			Source:      "local",
		},
		{
			Name:        "brave-search",
			Description: "Search the web using Brave Search API.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-brave-search",
			Source:      "local",
		},
		{
			Name:        "slack",
			Description: "Interact with Slack workspaces, channels, and messages.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-slack",
			Source:      "local",
		},
		{
			Name:        "puppeteer",
			Description: "Control a headless browser to interact with web pages, take screenshots, and scrape content.",
			Type:        types.TransportStdio,
			Command:     "npx --yes @modelcontextprotocol/server-puppeteer",
			Source:      "local",
		},
		{
			Name:        "memory",
			Description: "Store and retrieve information across conversations using vector search.",
			Type:        types.TransportStdio,
			Command:     "npx --yes @modelcontextprotocol/server-memory",
			Source:      "local",
		},
		{
			Name:        "postgres",
			Description: "Query and manage PostgreSQL databases.",
			Type:        types.TransportStdio,
			Command:     "uvx mcp-server-postgres",
			Source:      "local",
		},
		{
			Name:        "clock",
			Description: "Bundled demo server reporting the local time (toolscout clock-mcp).",
			Type:        types.TransportStdio,
			Command:     "clock-mcp",
			Source:      "local",
		},
	}
}
