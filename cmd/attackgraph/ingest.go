package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/attackgraph/graph"
	"github.com/zero-day-ai/attackgraph/ingest"
	"github.com/zero-day-ai/attackgraph/store"
	"github.com/zero-day-ai/attackgraph/stix"
)

var (
	bundlePath string
	bundleURL  string
	filterExpr string
	workers    int
	dryRun     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a STIX bundle into the graph",
	Long: `Ingest a STIX 2.x bundle into the Neo4j property graph.

The bundle is read from a local file when present, otherwise downloaded from
the MITRE CTI repository (and cached in Redis when a cache is configured).
Nodes are upserted first, then relationships are resolved into edges, so the
run can be repeated safely at any time.

Examples:
  # Ingest the enterprise bundle from the default location
  attackgraph ingest

  # Ingest a specific bundle file
  attackgraph ingest --bundle ./enterprise-attack.json

  # Ingest everything, including revoked and deprecated objects
  attackgraph ingest --filter true

  # Classify and resolve without touching Neo4j
  attackgraph ingest --dry-run`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&bundlePath, "bundle", "", "local STIX bundle file (overrides config)")
	ingestCmd.Flags().StringVar(&bundleURL, "url", "", "remote STIX bundle URL (overrides config)")
	ingestCmd.Flags().StringVar(&filterExpr, "filter", "", "CEL expression selecting objects to ingest (overrides config)")
	ingestCmd.Flags().IntVar(&workers, "workers", 0, "per-phase worker pool size (overrides config)")
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "ingest into an in-memory store and print the summary")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bundlePath != "" {
		cfg.Bundle.Path = bundlePath
	}
	if bundleURL != "" {
		cfg.Bundle.URL = bundleURL
	}
	if filterExpr != "" {
		cfg.Bundle.Filter = filterExpr
	}
	if workers > 0 {
		cfg.Ingest.Workers = workers
	}
	if !dryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	shutdownTracing := setupTracing(ctx)
	defer shutdownTracing(ctx)

	source := &stix.Source{
		Path:   cfg.Bundle.Path,
		URL:    cfg.Bundle.URL,
		Logger: slog.Default(),
	}
	if cfg.Bundle.Cache.RedisURL != "" {
		cache, err := stix.NewRedisCache(ctx, cfg.Bundle.Cache.RedisURL, cfg.Bundle.Cache.GetTTL())
		if err != nil {
			slog.Warn("bundle cache unavailable, continuing without it", "error", err)
		} else {
			defer cache.Close()
			source.Cache = cache
		}
	}

	bundle, err := source.Load(ctx)
	if err != nil {
		return err
	}

	filter, err := buildFilter(cfg.Bundle.Filter)
	if err != nil {
		return err
	}

	var graphStore graph.Store
	if dryRun {
		graphStore = store.NewMemory()
	} else {
		neo, err := store.NewNeo4j(ctx, store.Neo4jOptions{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return err
		}
		defer neo.Close(ctx)
		graphStore = neo
	}

	pipeline := ingest.New(graphStore,
		ingest.WithWorkers(cfg.Ingest.GetWorkers()),
		ingest.WithProgressEvery(cfg.Ingest.GetProgressEvery()),
		ingest.WithFilter(filter),
	)
	summary, err := pipeline.Run(ctx, bundle)
	if err != nil {
		return fmt.Errorf("ingestion failed after %d node and %d edge upserts: %w", summary.Nodes, summary.Edges, err)
	}

	fmt.Printf("Ingestion complete: %d node upserts, %d edge upserts (%d skipped, %d filtered, %d malformed)\n",
		summary.Nodes, summary.Edges, summary.SkippedType, summary.SkippedFilter, summary.Malformed)
	return nil
}

func buildFilter(expr string) (*stix.Filter, error) {
	switch expr {
	case "":
		return stix.NewDefaultFilter()
	case "true":
		// Keep everything; skip compiling a constant expression.
		return nil, nil
	default:
		return stix.NewFilter(expr)
	}
}
