// Package recommend selects tool servers worth offering for a chat message.
//
// The pipeline is semantic search over the index for candidates, then an LLM
// pass to pick the few that directly address the request. Every stage
// degrades rather than fails: a broken index falls back to the full catalog,
// a broken or unhelpful ranker falls back to the top candidates by
// similarity. Recommendations are per-session deduplicated so the same
// server is never offered twice in one conversation.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/toolscout-ai/toolscout/internal/index"
	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/internal/oracle"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

const (
	// CandidateCount is how many servers semantic search considers.
	CandidateCount = 15
	// MaxRecommendations bounds a single recommendation batch.
	MaxRecommendations = 3
)

// Searcher is the similarity index surface the engine needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.ScoredServer, error)
}

// Catalog supplies the full server list when search is unavailable.
type Catalog interface {
	Servers(ctx context.Context, useCache bool) types.CatalogSnapshot
}

// Session is the per-conversation state the engine consults and updates.
type Session interface {
	Connected(name string) bool
	WasRecommended(name string) bool
	MarkRecommended(names ...string)
}

// Engine produces server recommendations.
type Engine struct {
	search  Searcher
	catalog Catalog
	ranker  oracle.Ranker
}

// NewEngine wires the engine's dependencies.
func NewEngine(search Searcher, catalog Catalog, ranker oracle.Ranker) *Engine {
	return &Engine{search: search, catalog: catalog, ranker: ranker}
}

// Recommend returns the servers worth offering for the query, already
// filtered against what the session has seen or connected, and records them
// as offered. An empty result means nothing new to suggest.
func (e *Engine) Recommend(ctx context.Context, sess Session, query string) []types.ServerDescriptor {
	candidates := e.candidates(ctx, query)
	if len(candidates) == 0 {
		return nil
	}

	picked := e.rank(ctx, query, candidates)

	fresh := make([]types.ServerDescriptor, 0, len(picked))
	for _, s := range picked {
		if sess.WasRecommended(s.Name) || sess.Connected(s.Name) {
			continue
		}
		fresh = append(fresh, s)
	}

	if len(fresh) == 0 {
		return nil
	}

	names := make([]string, len(fresh))
	for i, s := range fresh {
		names[i] = s.Name
	}
	sess.MarkRecommended(names...)

	log := logging.Component("recommend")
	log.Debug().
		Strs("servers", names).
		Msg("recommendations prepared")
	return fresh
}

// candidates gathers servers to rank, preferring semantic search and falling
// back to the whole catalog when the index is unusable.
func (e *Engine) candidates(ctx context.Context, query string) []types.ServerDescriptor {
	hits, err := e.search.Search(ctx, query, CandidateCount)
	if err != nil {
		log := logging.Component("recommend")
		log.Warn().Err(err).Msg("search failed, using full catalog")
		return e.catalog.Servers(ctx, true).Servers
	}

	out := make([]types.ServerDescriptor, len(hits))
	for i, h := range hits {
		out[i] = h.ServerDescriptor
	}
	return out
}

// rank asks the model for the most relevant candidates. Any answer that
// cannot be interpreted selects the top candidates by search order instead.
func (e *Engine) rank(ctx context.Context, query string, candidates []types.ServerDescriptor) []types.ServerDescriptor {
	answer, err := e.ranker.Run(ctx, rankPrompt(query, candidates))
	if err != nil {
		log := logging.Component("recommend")
		log.Warn().Err(err).Msg("ranking failed, using search order")
		return firstN(candidates, MaxRecommendations)
	}

	if strings.Contains(strings.ToLower(answer), "none") {
		return firstN(candidates, MaxRecommendations)
	}

	wanted := make(map[string]bool)
	for _, name := range strings.Split(answer, ",") {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	var matched []types.ServerDescriptor
	for _, s := range candidates {
		if wanted[strings.ToLower(s.Name)] {
			matched = append(matched, s)
		}
	}

	if len(matched) == 0 {
		return firstN(candidates, MaxRecommendations)
	}
	return firstN(matched, MaxRecommendations)
}

// rankPrompt builds the selection prompt shown to the ranking model.
func rankPrompt(query string, candidates []types.ServerDescriptor) string {
	var list strings.Builder
	for _, s := range candidates {
		fmt.Fprintf(&list, "- %s: %s\n", s.Name, s.Description)
	}

	return fmt.Sprintf(`User query: %q

Available MCP servers:
%s
Return ONLY the most relevant server name(s). Be very selective - only include servers that directly address the user's specific need.
Return a comma-separated list (e.g., "filesystem" or "time,github" if multiple are truly needed).
If only one server is relevant, return only that one.
If none are relevant, return "none".`, query, list.String())
}

func firstN(servers []types.ServerDescriptor, n int) []types.ServerDescriptor {
	if len(servers) > n {
		return servers[:n]
	}
	return servers
}
