package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// DefaultTTL is how long a catalog snapshot stays valid.
const DefaultTTL = 24 * time.Hour

// Discoverer supplies supplementary server entries merged into a rebuild.
type Discoverer interface {
	Discover(ctx context.Context) []types.ServerDescriptor
}

// Cache memoizes the assembled server list as an immutable snapshot with a
// fixed TTL. Rebuilds replace the snapshot wholesale; concurrent rebuilds are
// last-writer-wins, which is acceptable because staleness is bounded by the
// TTL.
type Cache struct {
	mu       sync.Mutex
	store    *Store
	discover Discoverer // optional
	ttl      time.Duration
	now      func() time.Time

	snapshot *types.CatalogSnapshot
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the snapshot lifetime.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithDiscoverer adds a supplementary discovery source.
func WithDiscoverer(d Discoverer) CacheOption {
	return func(c *Cache) { c.discover = d }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a cache over the given store.
func NewCache(store *Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Servers returns the current catalog snapshot. With useCache set, a
// non-expired snapshot is returned as-is without any I/O; otherwise the list
// is rebuilt from the store and the optional discovery source, stamped, and
// stored as the new current snapshot.
func (c *Cache) Servers(ctx context.Context, useCache bool) types.CatalogSnapshot {
	c.mu.Lock()
	if useCache && c.snapshot != nil && c.now().Sub(c.snapshot.CreatedAt) < c.ttl {
		snap := *c.snapshot
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	snap := c.rebuild(ctx)

	c.mu.Lock()
	c.snapshot = &snap
	c.mu.Unlock()

	return snap
}

// rebuild assembles a fresh snapshot. Local entries take precedence over
// discovered ones when names collide.
func (c *Cache) rebuild(ctx context.Context) types.CatalogSnapshot {
	servers := c.store.Servers()

	if c.discover != nil {
		discovered := c.discover.Discover(ctx)
		servers = append(servers, onlyNew(discovered, servers)...)
		log := logging.Component("catalog")
		log.Debug().
			Int("local", len(c.store.Servers())).
			Int("discovered", len(discovered)).
			Msg("catalog rebuilt")
	}

	return types.CatalogSnapshot{
		Servers:   servers,
		CreatedAt: c.now(),
	}
}

// mergeByName concatenates primary and secondary entries, dropping secondary
// entries whose name (case-insensitive) already appears in primary.
func mergeByName(primary, secondary []types.ServerDescriptor) []types.ServerDescriptor {
	merged := make([]types.ServerDescriptor, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)
	return append(merged, onlyNew(secondary, primary)...)
}

// onlyNew returns the candidates whose names are not already taken.
func onlyNew(candidates, existing []types.ServerDescriptor) []types.ServerDescriptor {
	taken := make(map[string]bool, len(existing))
	for _, d := range existing {
		taken[strings.ToLower(d.Name)] = true
	}

	var out []types.ServerDescriptor
	for _, d := range candidates {
		if !taken[strings.ToLower(d.Name)] {
			taken[strings.ToLower(d.Name)] = true
			out = append(out, d)
		}
	}
	return out
}
