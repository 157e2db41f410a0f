package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolscout-ai/toolscout/pkg/types"
)

func npmMetadata(description string) map[string]any {
	return map[string]any{
		"dist-tags": map[string]string{"latest": "1.2.3"},
		"versions": map[string]any{
			"1.2.3": map[string]string{"description": description},
		},
	}
}

func TestNPMDiscoverer_Discover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mcp-server-fetch":
			json.NewEncoder(w).Encode(npmMetadata("Fetch things."))
		case "/mcp-server-time":
			json.NewEncoder(w).Encode(npmMetadata(""))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewNPMDiscovererWithBase(srv.URL, srv.Client())
	servers := d.Discover(context.Background())

	byName := make(map[string]types.ServerDescriptor)
	for _, s := range servers {
		byName[s.Name] = s
	}

	// Found packages map to descriptors; missing ones are skipped silently.
	assert.Len(t, servers, 2)

	fetch := byName["fetch"]
	assert.Equal(t, "Fetch things.", fetch.Description)
	assert.Equal(t, "uvx mcp-server-fetch", fetch.Command)
	assert.Equal(t, "npm", fetch.Source)
	assert.Equal(t, types.TransportStdio, fetch.Type)

	// Blank descriptions fall back to a generated one.
	assert.Equal(t, "MCP server: mcp-server-time", byName["time"].Description)
}

func TestNPMDiscoverer_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mcp-server-fetch" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(npmMetadata("Fetch things."))
	}))
	defer srv.Close()

	d := NewNPMDiscovererWithBase(srv.URL, srv.Client())
	desc, err := d.lookup(context.Background(), "mcp-server-fetch")

	assert.NoError(t, err)
	assert.Equal(t, "fetch", desc.Name)
	assert.Equal(t, 2, attempts)
}

func TestNPMDiscoverer_NotFoundIsPermanent(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewNPMDiscovererWithBase(srv.URL, srv.Client())
	_, err := d.lookup(context.Background(), "mcp-server-fetch")

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
