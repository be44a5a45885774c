package ingest

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the ingestion counters. Instruments come from the global
// meter provider; without an installed SDK they are no-ops.
type metrics struct {
	nodes     metric.Int64Counter
	edges     metric.Int64Counter
	skipped   metric.Int64Counter
	malformed metric.Int64Counter
}

func newMetrics(logger *slog.Logger) *metrics {
	meter := otel.Meter(instrumentationName)
	m := &metrics{}

	var err error
	if m.nodes, err = meter.Int64Counter("ingest.nodes.upserted",
		metric.WithDescription("Node upserts sent to the graph store")); err != nil {
		logger.Warn("failed to create node counter", "error", err)
	}
	if m.edges, err = meter.Int64Counter("ingest.edges.upserted",
		metric.WithDescription("Edge upserts sent to the graph store")); err != nil {
		logger.Warn("failed to create edge counter", "error", err)
	}
	if m.skipped, err = meter.Int64Counter("ingest.objects.skipped",
		metric.WithDescription("Bundle objects excluded from the graph")); err != nil {
		logger.Warn("failed to create skip counter", "error", err)
	}
	if m.malformed, err = meter.Int64Counter("ingest.objects.malformed",
		metric.WithDescription("Bundle objects dropped for missing required fields")); err != nil {
		logger.Warn("failed to create malformed counter", "error", err)
	}
	return m
}

func (m *metrics) addNodes(ctx context.Context, n int64, label string) {
	if m.nodes != nil {
		m.nodes.Add(ctx, n, metric.WithAttributes(attribute.String("label", label)))
	}
}

func (m *metrics) addEdges(ctx context.Context, n int64, edgeType string) {
	if m.edges != nil {
		m.edges.Add(ctx, n, metric.WithAttributes(attribute.String("type", edgeType)))
	}
}

func (m *metrics) addSkipped(ctx context.Context, n int64, reason string) {
	if m.skipped != nil {
		m.skipped.Add(ctx, n, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *metrics) addMalformed(ctx context.Context, n int64) {
	if m.malformed != nil {
		m.malformed.Add(ctx, n)
	}
}
