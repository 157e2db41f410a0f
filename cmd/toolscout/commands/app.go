package commands

import (
	"context"
	"fmt"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/toolscout-ai/toolscout/internal/catalog"
	"github.com/toolscout-ai/toolscout/internal/chat"
	"github.com/toolscout-ai/toolscout/internal/config"
	"github.com/toolscout-ai/toolscout/internal/connect"
	"github.com/toolscout-ai/toolscout/internal/event"
	"github.com/toolscout-ai/toolscout/internal/index"
	"github.com/toolscout-ai/toolscout/internal/logging"
	"github.com/toolscout-ai/toolscout/internal/oracle"
	"github.com/toolscout-ai/toolscout/internal/recommend"
	"github.com/toolscout-ai/toolscout/internal/registry"
	"github.com/toolscout-ai/toolscout/pkg/types"
)

// app bundles the wired components shared by the serve and chat commands.
type app struct {
	cfg      *types.Config
	catalog  *catalog.Cache
	index    *index.Index // nil when the embedder is unavailable
	registry *registry.Registry
	bus      *event.Bus
	chat     *chat.Handler
}

// Close releases sessions, subscriptions, and the index database.
func (a *app) Close() {
	a.registry.Close()
	a.bus.Close()
	if a.index != nil {
		a.index.Close()
	}
}

// loadConfig resolves the working directory, loads configuration, and
// initializes logging from it.
func loadConfig() (*types.Config, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: true,
	})
	return cfg, nil
}

// buildApp wires the catalog, index, recommendation engine, connection
// manager, and chat handler from configuration.
func buildApp(ctx context.Context, cfg *types.Config) (*app, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	cacheOpts := []catalog.CacheOption{
		catalog.WithTTL(time.Duration(cfg.CacheTTLHours) * time.Hour),
	}
	if cfg.NPMDiscovery {
		cacheOpts = append(cacheOpts, catalog.WithDiscoverer(catalog.NewNPMDiscoverer()))
	}
	cache := catalog.NewCache(store, cacheOpts...)

	ix, search := openIndex(ctx, cfg, cache)

	rankerModel, err := oracle.NewChatModel(ctx, cfg.RecommenderModel, cfg)
	if err != nil {
		return nil, fmt.Errorf("recommender model: %w", err)
	}
	engine := recommend.NewEngine(search, cache, oracle.NewLLMRanker(rankerModel))

	manager := connect.NewManager(
		connect.WithTimeout(time.Duration(cfg.ConnectTimeoutSeconds) * time.Second),
	)

	buildAgent := func(ctx context.Context, tools []einotool.InvokableTool) (*oracle.Agent, error) {
		chatModel, err := oracle.NewChatModel(ctx, cfg.Model, cfg)
		if err != nil {
			return nil, fmt.Errorf("chat model: %w", err)
		}
		return oracle.NewAgent(ctx, chatModel, "", tools)
	}

	bus := event.NewBus()
	reg := registry.New()
	handler := chat.NewHandler(cache, manager, engineRecommender{engine}, buildAgent, bus)

	return &app{
		cfg:      cfg,
		catalog:  cache,
		index:    ix,
		registry: reg,
		bus:      bus,
		chat:     handler,
	}, nil
}

// newStore builds the catalog store, merging a user catalog file when
// configured.
func newStore(cfg *types.Config) (*catalog.Store, error) {
	if cfg.CatalogPath == "" {
		return catalog.NewStore(), nil
	}
	store, err := catalog.NewStoreFromFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", cfg.CatalogPath, err)
	}
	return store, nil
}

// openIndex opens the similarity index and seeds it from the catalog on
// first use. Without an embedding provider the index stays closed and the
// recommendation engine falls back to the full catalog.
func openIndex(ctx context.Context, cfg *types.Config, cache *catalog.Cache) (*index.Index, recommend.Searcher) {
	log := logging.Component("cli")

	embedder, err := index.NewEmbedder(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("similarity search disabled")
		return nil, unavailableSearcher{err: err}
	}

	ix, err := index.New(cfg.IndexPath, embedder)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.IndexPath).Msg("similarity index unavailable")
		return nil, unavailableSearcher{err: err}
	}

	if n, err := ix.Count(ctx); err == nil && n == 0 {
		snapshot := cache.Servers(ctx, true)
		if err := ix.Upsert(ctx, snapshot.Servers); err != nil {
			log.Warn().Err(err).Msg("failed to seed similarity index")
		} else {
			log.Info().Int("servers", len(snapshot.Servers)).Msg("seeded similarity index")
		}
	}

	return ix, ix
}

// engineRecommender adapts the recommendation engine to the chat surface.
type engineRecommender struct {
	engine *recommend.Engine
}

func (r engineRecommender) Recommend(ctx context.Context, sess *registry.Session, query string) []types.ServerDescriptor {
	return r.engine.Recommend(ctx, sess, query)
}

// unavailableSearcher reports a fixed error so the recommendation engine
// takes its catalog fallback path.
type unavailableSearcher struct {
	err error
}

func (s unavailableSearcher) Search(ctx context.Context, query string, k int) ([]index.ScoredServer, error) {
	return nil, s.err
}
