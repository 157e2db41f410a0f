// Package types defines shared types used across the toolscout API.
package types

import (
	"strings"
	"time"
)

// TransportType represents how a connection to an MCP server is established.
type TransportType string

const (
	// TransportStdio launches the server as a local process speaking MCP over stdio.
	TransportStdio TransportType = "stdio"
	// TransportHTTP connects to a remote server over streamable HTTP.
	TransportHTTP TransportType = "http"
)

// ServerDescriptor is an immutable catalog entry describing a known MCP server.
// Identity is the Name field; names are compared case-insensitively when
// deduplicating catalog sources.
type ServerDescriptor struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        TransportType `json:"type"`
	Command     string        `json:"command,omitempty"` // launch line for stdio servers
	URL         string        `json:"url,omitempty"`     // endpoint for http servers
	Source      string        `json:"source,omitempty"`  // where the entry came from (e.g. "local", "npm")
}

// Slug returns the identifier used to key the descriptor in the similarity
// index: the lowercased name with spaces replaced by dashes.
func (d ServerDescriptor) Slug() string {
	return strings.ReplaceAll(strings.ToLower(d.Name), " ", "-")
}

// SearchText builds the document text indexed for semantic search.
func (d ServerDescriptor) SearchText() string {
	parts := []string{d.Name, d.Description}
	if d.Command != "" {
		parts = append(parts, d.Command)
	}
	if d.URL != "" {
		parts = append(parts, d.URL)
	}
	if d.Type != "" {
		parts = append(parts, "type: "+string(d.Type))
	}
	return strings.Join(parts, " ")
}

// CatalogSnapshot is a timestamped, immutable list of server descriptors.
// Snapshots are replaced wholesale when they expire, never patched in place.
type CatalogSnapshot struct {
	Servers   []ServerDescriptor `json:"servers"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Find resolves a server by exact name match.
func (s CatalogSnapshot) Find(name string) (ServerDescriptor, bool) {
	for _, d := range s.Servers {
		if d.Name == name {
			return d, true
		}
	}
	return ServerDescriptor{}, false
}

// Age reports how long ago the snapshot was built.
func (s CatalogSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
