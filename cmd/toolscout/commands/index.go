package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toolscout-ai/toolscout/internal/catalog"
	"github.com/toolscout-ai/toolscout/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the similarity index",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed the full catalog into the similarity index",
	RunE:  runIndexRebuild,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the servers stored in the similarity index",
	RunE:  runIndexList,
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexListCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	cacheOpts := []catalog.CacheOption{
		catalog.WithTTL(time.Duration(cfg.CacheTTLHours) * time.Hour),
	}
	if cfg.NPMDiscovery {
		cacheOpts = append(cacheOpts, catalog.WithDiscoverer(catalog.NewNPMDiscoverer()))
	}
	snapshot := catalog.NewCache(store, cacheOpts...).Servers(ctx, false)

	embedder, err := index.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("embedding provider required for rebuild: %w", err)
	}

	ix, err := index.New(cfg.IndexPath, embedder)
	if err != nil {
		return err
	}
	defer ix.Close()

	if err := ix.Upsert(ctx, snapshot.Servers); err != nil {
		return err
	}

	count, err := ix.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d servers into %s\n", count, cfg.IndexPath)
	return nil
}

func runIndexList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Listing reads stored rows only, no embedder needed.
	ix, err := index.New(cfg.IndexPath, nil)
	if err != nil {
		return err
	}
	defer ix.Close()

	servers, err := ix.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Println("Index is empty. Run 'toolscout index rebuild' to populate it.")
		return nil
	}

	for _, s := range servers {
		fmt.Printf("%-20s %-6s %s\n", s.Name, s.Type, s.Description)
	}
	fmt.Printf("\n%d servers\n", len(servers))
	return nil
}
