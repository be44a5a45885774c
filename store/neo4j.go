package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/zero-day-ai/attackgraph/graph"
)

// Neo4jOptions configures the Neo4j connection.
type Neo4jOptions struct {
	// URI is the bolt connection string (e.g. "bolt://localhost:7687").
	URI string

	// Username and Password authenticate against the database.
	Username string
	Password string

	// Database selects a named database; empty uses the server default.
	Database string

	Logger *slog.Logger
}

// Neo4jStore is a graph.Store backed by a Neo4j database. Idempotence and
// per-key write serialization come from Cypher MERGE under the uniqueness
// constraints EnsureSchema establishes.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4j connects to Neo4j and verifies connectivity before returning.
func NewNeo4j(ctx context.Context, opts Neo4jOptions) (*Neo4jStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("neo4j URI is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j at %s: %w", opts.URI, err)
	}

	logger.Info("connected to Neo4j", "component", "store", "uri", opts.URI, "database", opts.Database)
	return &Neo4jStore{driver: driver, database: opts.Database, logger: logger}, nil
}

// Close releases the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraints ingestion relies on:
// stix_id per label for all seven labels, plus shortname for Tactic (the
// merge key stubs and full tactic objects converge on). Multiple null key
// values never violate a Neo4j uniqueness constraint, so stub tactics
// without a stix_id are fine.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	for _, label := range graph.AllLabels {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", label, graph.KeyStixID)
		if err := runDiscard(ctx, session, query, nil); err != nil {
			return fmt.Errorf("failed to create %s constraint: %w", label, err)
		}
	}
	query := fmt.Sprintf(
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", graph.LabelTactic, graph.KeyShortname)
	if err := runDiscard(ctx, session, query, nil); err != nil {
		return fmt.Errorf("failed to create Tactic shortname constraint: %w", err)
	}
	return nil
}

// UpsertNode applies a node upsert with MERGE semantics.
func (s *Neo4jStore) UpsertNode(ctx context.Context, upsert graph.NodeUpsert) error {
	if err := upsert.Validate(); err != nil {
		return err
	}
	query, params := nodeMergeQuery(upsert)

	session := s.session(ctx)
	defer session.Close(ctx)

	if err := runDiscard(ctx, session, query, params); err != nil {
		return fmt.Errorf("failed to upsert %s node %s: %w", upsert.Label, upsert.KeyValue, err)
	}
	return nil
}

// UpsertEdge applies an edge upsert with MATCH..MATCH..MERGE semantics: a
// no-op when either endpoint does not exist.
func (s *Neo4jStore) UpsertEdge(ctx context.Context, upsert graph.EdgeUpsert) error {
	if err := upsert.Validate(); err != nil {
		return err
	}
	query, params := edgeMergeQuery(upsert)

	session := s.session(ctx)
	defer session.Close(ctx)

	if err := runDiscard(ctx, session, query, params); err != nil {
		return fmt.Errorf("failed to upsert %s edge %s -> %s: %w", upsert.Type, upsert.SourceKey, upsert.TargetKey, err)
	}
	return nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
}

func runDiscard(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]any) error {
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// nodeMergeQuery renders the Cypher for a node upsert. Labels and key names
// are interpolated because Cypher cannot parameterize them; both come from
// package constants in graph, never from bundle input. OnCreate properties
// apply only on first creation, Properties overwrite on every application.
func nodeMergeQuery(upsert graph.NodeUpsert) (string, map[string]any) {
	query := fmt.Sprintf(`MERGE (n:%s {%s: $key})
ON CREATE SET n += $on_create
SET n += $props`, upsert.Label, upsert.KeyName)

	params := map[string]any{
		"key":       upsert.KeyValue,
		"on_create": nonNil(upsert.OnCreate),
		"props":     nonNil(upsert.Properties),
	}
	return query, params
}

// edgeMergeQuery renders the Cypher for an edge upsert. MATCH on both
// endpoints makes the merge a no-op when either is missing, and MERGE on
// the relationship pattern prevents parallel duplicates.
func edgeMergeQuery(upsert graph.EdgeUpsert) (string, map[string]any) {
	query := fmt.Sprintf(`MATCH (a:%s {%s: $source_key})
MATCH (b:%s {%s: $target_key})
MERGE (a)-[:%s]->(b)`,
		upsert.SourceLabel, upsert.SourceKeyName,
		upsert.TargetLabel, upsert.TargetKeyName,
		upsert.Type)

	params := map[string]any{
		"source_key": upsert.SourceKey,
		"target_key": upsert.TargetKey,
	}
	return query, params
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
