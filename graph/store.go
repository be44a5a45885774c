package graph

import "context"

// Store applies node and edge upserts to a transactional property-graph
// database. Implementations must be idempotent: re-applying the same upsert
// leaves the graph unchanged apart from refreshed property values, and the
// upsert for a given identity key must be serialized relative to concurrent
// upserts of the same key.
type Store interface {
	// EnsureSchema establishes the uniqueness constraints ingestion relies
	// on: stix_id per label for all seven labels, plus shortname for Tactic.
	// Called once before ingestion begins.
	EnsureSchema(ctx context.Context) error

	// UpsertNode creates the node if absent or refreshes it in place,
	// honoring the upsert's OnCreate/Properties merge policy.
	UpsertNode(ctx context.Context, upsert NodeUpsert) error

	// UpsertEdge ensures the typed edge exists between two existing nodes.
	// A no-op (not an error) when either endpoint does not exist. Never
	// creates a parallel duplicate edge.
	UpsertEdge(ctx context.Context, upsert EdgeUpsert) error
}
