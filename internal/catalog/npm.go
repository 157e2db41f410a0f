package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

const (
	npmRegistryURL = "https://registry.npmjs.org"
	npmHTTPTimeout = 10 * time.Second
	npmMaxRetries  = 2
)

// npmPackages are the known npm package names probed for MCP servers.
var npmPackages = []string{
	"mcp-server-fetch",
	"mcp-server-sqlite",
	"mcp-server-time",
	"mcp-server-github",
	"mcp-server-brave-search",
	"mcp-server-postgres",
	"mcp-server-slack",
	"mcp-server-filesystem",
}

// NPMDiscoverer discovers MCP servers by probing the npm registry for known
// package names. Lookups fail softly: a package that cannot be fetched or
// parsed is skipped.
type NPMDiscoverer struct {
	baseURL string
	client  *http.Client
}

// NewNPMDiscoverer creates a discoverer against the public npm registry.
func NewNPMDiscoverer() *NPMDiscoverer {
	return &NPMDiscoverer{
		baseURL: npmRegistryURL,
		client:  &http.Client{Timeout: npmHTTPTimeout},
	}
}

// NewNPMDiscovererWithBase creates a discoverer against a custom registry
// endpoint. Used in tests.
func NewNPMDiscovererWithBase(baseURL string, client *http.Client) *NPMDiscoverer {
	if client == nil {
		client = &http.Client{Timeout: npmHTTPTimeout}
	}
	return &NPMDiscoverer{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Discover probes the registry for each known package and returns descriptors
// for the ones that exist.
func (d *NPMDiscoverer) Discover(ctx context.Context) []types.ServerDescriptor {
	log := logging.Component("catalog")

	var servers []types.ServerDescriptor
	for _, pkg := range npmPackages {
		desc, err := d.lookup(ctx, pkg)
		if err != nil {
			log.Debug().Str("package", pkg).Err(err).Msg("npm lookup failed")
			continue
		}
		servers = append(servers, desc)
	}
	return servers
}

// lookup fetches package metadata with retries and builds a descriptor.
func (d *NPMDiscoverer) lookup(ctx context.Context, pkg string) (types.ServerDescriptor, error) {
	var meta struct {
		DistTags map[string]string `json:"dist-tags"`
		Versions map[string]struct {
			Description string `json:"description"`
		} `json:"versions"`
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/"+pkg, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("package not found"))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&meta)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.RandomizationFactor = 0.5
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, npmMaxRetries), ctx)); err != nil {
		return types.ServerDescriptor{}, err
	}

	latest := meta.DistTags["latest"]
	if latest == "" {
		return types.ServerDescriptor{}, fmt.Errorf("no latest version")
	}

	description := meta.Versions[latest].Description
	if description == "" {
		description = "MCP server: " + pkg
	}

	return types.ServerDescriptor{
		Name:        strings.TrimPrefix(pkg, "mcp-server-"),
		Description: description,
		Type:        types.TransportStdio,
		Command:     "uvx " + pkg,
		Source:      "npm",
	}, nil
}
