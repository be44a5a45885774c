// Package ingest runs the two-phase bundle ingestion: every node-shaped
// object is classified and upserted first, then every relationship is
// resolved into edges. The barrier between phases is hard — edge upserts
// match existing nodes by key and silently produce nothing when an endpoint
// is missing, so no relationship may be processed before the node pass
// completes.
//
// Within a phase, upserts for distinct identity keys are commutative, so
// objects are fanned out to a worker pool. Per-key write serialization is
// delegated to the store's transactional merge semantics.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/attackgraph/graph"
	"github.com/zero-day-ai/attackgraph/stix"
)

const (
	// DefaultWorkers is the per-phase worker pool size.
	DefaultWorkers = 4

	// DefaultProgressEvery is how many processed objects between progress
	// log lines.
	DefaultProgressEvery = 500
)

const instrumentationName = "github.com/zero-day-ai/attackgraph/ingest"

// Summary reports what an ingestion run attempted. Counts are attempts:
// an edge upsert whose endpoint was missing still counts as attempted.
type Summary struct {
	// Nodes is the number of node upserts sent to the store (including
	// tactic stubs).
	Nodes int64

	// Edges is the number of edge upserts sent to the store.
	Edges int64

	// SkippedType is the number of objects outside the graph vocabulary.
	SkippedType int64

	// SkippedFilter is the number of objects excluded by the object filter.
	SkippedFilter int64

	// Malformed is the number of objects dropped for missing required
	// fields (id, source_ref, target_ref). Malformed objects never abort
	// the run.
	Malformed int64
}

// Pipeline ingests STIX bundles into a graph.Store.
type Pipeline struct {
	store         graph.Store
	filter        *stix.Filter
	workers       int
	progressEvery int64
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the per-phase worker pool size.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithFilter sets the object filter applied before classification and
// resolution. A nil filter keeps every object.
func WithFilter(f *stix.Filter) Option {
	return func(p *Pipeline) { p.filter = f }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithProgressEvery sets how many processed objects between progress logs.
func WithProgressEvery(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.progressEvery = int64(n)
		}
	}
}

// New creates a Pipeline writing to the given store.
func New(store graph.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:         store,
		workers:       DefaultWorkers,
		progressEvery: DefaultProgressEvery,
		logger:        slog.Default(),
		tracer:        otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.metrics = newMetrics(p.logger)
	return p
}

// Run ingests the bundle: schema bootstrap, node phase, barrier,
// relationship phase. A store or connectivity failure aborts the run; the
// returned Summary still reflects the counts reached. Re-running after a
// partial failure is safe because every write is idempotent.
func (p *Pipeline) Run(ctx context.Context, bundle *stix.Bundle) (Summary, error) {
	ctx, span := p.tracer.Start(ctx, "ingest.run",
		trace.WithAttributes(attribute.Int("bundle.objects", len(bundle.Objects))))
	defer span.End()

	if err := p.store.EnsureSchema(ctx); err != nil {
		span.RecordError(err)
		return Summary{}, err
	}

	nodes, relationships := bundle.Partition()
	p.logger.Info("starting ingestion",
		"component", "ingest",
		"node_objects", len(nodes),
		"relationship_objects", len(relationships),
		"workers", p.workers)

	var summary Summary

	if err := p.runPhase(ctx, "nodes", nodes, &summary, p.processNodeObject); err != nil {
		span.RecordError(err)
		return summary, err
	}
	// Phase barrier: every node upsert above has returned before any
	// relationship below is resolved.
	if err := p.runPhase(ctx, "relationships", relationships, &summary, p.processRelationship); err != nil {
		span.RecordError(err)
		return summary, err
	}

	span.SetAttributes(
		attribute.Int64("ingest.nodes", summary.Nodes),
		attribute.Int64("ingest.edges", summary.Edges),
		attribute.Int64("ingest.malformed", summary.Malformed),
	)
	p.logger.Info("ingestion complete",
		"component", "ingest",
		"nodes", summary.Nodes,
		"edges", summary.Edges,
		"skipped_type", summary.SkippedType,
		"skipped_filter", summary.SkippedFilter,
		"malformed", summary.Malformed)
	return summary, nil
}

// runPhase fans objects out to the worker pool and waits for every worker
// to finish. The first store failure cancels the phase; malformed objects
// are counted inside process and never surface as phase errors.
func (p *Pipeline) runPhase(ctx context.Context, name string, objects []stix.Object, summary *Summary, process func(context.Context, stix.Object, *Summary) error) error {
	ctx, span := p.tracer.Start(ctx, "ingest.phase."+name,
		trace.WithAttributes(attribute.Int("phase.objects", len(objects))))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		processed atomic.Int64
		firstErr  error
		errOnce   sync.Once
	)

	work := make(chan stix.Object)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for obj := range work {
				if err := process(ctx, obj, summary); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				if n := processed.Add(1); n%p.progressEvery == 0 {
					p.logger.Info("ingestion progress",
						"component", "ingest", "phase", name, "processed", n, "total", len(objects))
				}
			}
		}()
	}

feed:
	for _, obj := range objects {
		select {
		case work <- obj:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	// cancel() only fires together with firstErr, so a cancellation seen
	// without one came from the caller and must propagate.
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		span.RecordError(firstErr)
	}
	return firstErr
}

// processNodeObject classifies one node-shaped object and applies its
// intent: node upserts first, then any implied edges (a technique's tactic
// links reference only nodes materialized in the same intent).
func (p *Pipeline) processNodeObject(ctx context.Context, obj stix.Object, summary *Summary) error {
	if p.skipByFilter(ctx, obj, summary) {
		return nil
	}

	intent, ok, err := graph.Classify(obj)
	if err != nil {
		atomic.AddInt64(&summary.Malformed, 1)
		p.metrics.addMalformed(ctx, 1)
		p.logger.Warn("skipping malformed object",
			"component", "ingest", "type", obj.Type(), "error", err)
		return nil
	}
	if !ok {
		atomic.AddInt64(&summary.SkippedType, 1)
		p.metrics.addSkipped(ctx, 1, "type")
		return nil
	}

	for _, node := range intent.Nodes {
		if err := p.store.UpsertNode(ctx, node); err != nil {
			return err
		}
		atomic.AddInt64(&summary.Nodes, 1)
		p.metrics.addNodes(ctx, 1, string(node.Label))
	}
	for _, edge := range intent.Edges {
		if err := p.store.UpsertEdge(ctx, edge); err != nil {
			return err
		}
		atomic.AddInt64(&summary.Edges, 1)
		p.metrics.addEdges(ctx, 1, string(edge.Type))
	}
	return nil
}

// processRelationship resolves one relationship object into edge upserts
// and applies them.
func (p *Pipeline) processRelationship(ctx context.Context, obj stix.Object, summary *Summary) error {
	if p.skipByFilter(ctx, obj, summary) {
		return nil
	}

	edges, err := graph.Resolve(obj)
	if err != nil {
		atomic.AddInt64(&summary.Malformed, 1)
		p.metrics.addMalformed(ctx, 1)
		p.logger.Warn("skipping malformed relationship",
			"component", "ingest", "id", obj.ID(), "error", err)
		return nil
	}
	if len(edges) == 0 {
		atomic.AddInt64(&summary.SkippedType, 1)
		p.metrics.addSkipped(ctx, 1, "relationship_type")
		return nil
	}

	for _, edge := range edges {
		if err := p.store.UpsertEdge(ctx, edge); err != nil {
			return err
		}
		atomic.AddInt64(&summary.Edges, 1)
		p.metrics.addEdges(ctx, 1, string(edge.Type))
	}
	return nil
}

// skipByFilter applies the object filter. Filter evaluation errors keep the
// object: a broken expression must not silently drop intelligence.
func (p *Pipeline) skipByFilter(ctx context.Context, obj stix.Object, summary *Summary) bool {
	if p.filter == nil {
		return false
	}
	keep, err := p.filter.Keep(obj)
	if err != nil {
		p.logger.Warn("object filter failed, keeping object",
			"component", "ingest", "id", obj.ID(), "error", err)
		return false
	}
	if !keep {
		atomic.AddInt64(&summary.SkippedFilter, 1)
		p.metrics.addSkipped(ctx, 1, "filter")
	}
	return !keep
}
