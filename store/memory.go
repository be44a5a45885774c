// Package store provides graph.Store implementations: a Neo4j-backed store
// for real ingestion and an in-memory store for tests and dry runs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zero-day-ai/attackgraph/graph"
)

type nodeKey struct {
	Label    graph.Label
	KeyName  string
	KeyValue string
}

type edgeKey struct {
	Source nodeKey
	Type   graph.EdgeType
	Target nodeKey
}

// Memory is an in-memory graph.Store with the same merge semantics as the
// Neo4j store: MERGE on identity key, OnCreate applied only on first sight,
// Properties overwritten on every sight, edge upserts a no-op when either
// endpoint is absent. Safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	nodes map[nodeKey]map[string]any
	edges map[edgeKey]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[nodeKey]map[string]any),
		edges: make(map[edgeKey]struct{}),
	}
}

// EnsureSchema is a no-op; uniqueness is inherent to the map keying.
func (m *Memory) EnsureSchema(ctx context.Context) error { return nil }

// UpsertNode applies a node upsert under the store's merge policy.
func (m *Memory) UpsertNode(ctx context.Context, upsert graph.NodeUpsert) error {
	if err := upsert.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := nodeKey{Label: upsert.Label, KeyName: upsert.KeyName, KeyValue: upsert.KeyValue}
	props, exists := m.nodes[key]
	if !exists {
		props = map[string]any{upsert.KeyName: upsert.KeyValue}
		for k, v := range upsert.OnCreate {
			props[k] = v
		}
		m.nodes[key] = props
	}
	for k, v := range upsert.Properties {
		props[k] = v
	}
	return nil
}

// UpsertEdge applies an edge upsert; a no-op when either endpoint is absent.
func (m *Memory) UpsertEdge(ctx context.Context, upsert graph.EdgeUpsert) error {
	if err := upsert.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	source := nodeKey{Label: upsert.SourceLabel, KeyName: upsert.SourceKeyName, KeyValue: upsert.SourceKey}
	target := nodeKey{Label: upsert.TargetLabel, KeyName: upsert.TargetKeyName, KeyValue: upsert.TargetKey}
	if _, ok := m.nodes[source]; !ok {
		return nil
	}
	if _, ok := m.nodes[target]; !ok {
		return nil
	}
	m.edges[edgeKey{Source: source, Type: upsert.Type, Target: target}] = struct{}{}
	return nil
}

// NodeCount returns the number of nodes in the store.
func (m *Memory) NodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

// EdgeCount returns the number of edges in the store.
func (m *Memory) EdgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// Node returns a copy of the property bag for the node with the given
// identity, and whether it exists.
func (m *Memory) Node(label graph.Label, keyName, keyValue string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props, ok := m.nodes[nodeKey{Label: label, KeyName: keyName, KeyValue: keyValue}]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out, true
}

// HasEdge reports whether the edge described by the upsert exists.
func (m *Memory) HasEdge(upsert graph.EdgeUpsert) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := edgeKey{
		Source: nodeKey{Label: upsert.SourceLabel, KeyName: upsert.SourceKeyName, KeyValue: upsert.SourceKey},
		Type:   upsert.Type,
		Target: nodeKey{Label: upsert.TargetLabel, KeyName: upsert.TargetKeyName, KeyValue: upsert.TargetKey},
	}
	_, ok := m.edges[key]
	return ok
}

// Snapshot returns a deterministic textual rendering of the node and edge
// sets, suitable for whole-graph equality checks in tests.
func (m *Memory) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]string, 0, len(m.nodes)+len(m.edges))
	for key, props := range m.nodes {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		line := fmt.Sprintf("node %s{%s=%s}", key.Label, key.KeyName, key.KeyValue)
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%v", k, props[k])
		}
		lines = append(lines, line)
	}
	for key := range m.edges {
		lines = append(lines, fmt.Sprintf("edge %s{%s=%s} -%s-> %s{%s=%s}",
			key.Source.Label, key.Source.KeyName, key.Source.KeyValue,
			key.Type,
			key.Target.Label, key.Target.KeyName, key.Target.KeyValue))
	}
	sort.Strings(lines)
	return lines
}
