package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/attackgraph/graph"
)

func TestMemory_UpsertNodeMergePolicy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := graph.NewNodeUpsert(graph.LabelTechnique, graph.KeyStixID, "attack-pattern--a").
		WithProperty("name", "old name").
		WithOnCreate("seen_first", true)
	require.NoError(t, m.UpsertNode(ctx, first))

	second := graph.NewNodeUpsert(graph.LabelTechnique, graph.KeyStixID, "attack-pattern--a").
		WithProperty("name", "new name").
		WithOnCreate("seen_first", false)
	require.NoError(t, m.UpsertNode(ctx, second))

	require.Equal(t, 1, m.NodeCount(), "re-upserting the same key must not duplicate the node")

	props, ok := m.Node(graph.LabelTechnique, graph.KeyStixID, "attack-pattern--a")
	require.True(t, ok)
	assert.Equal(t, "new name", props["name"], "Properties overwrite on every upsert")
	assert.Equal(t, true, props["seen_first"], "OnCreate never overwrites an existing value")
	assert.Equal(t, "attack-pattern--a", props[graph.KeyStixID], "identity key is stored as a property")
}

func TestMemory_StubThenFullTacticConverge(t *testing.T) {
	ctx := context.Background()

	stub := graph.NewNodeUpsert(graph.LabelTactic, graph.KeyShortname, "execution").
		WithOnCreate("name", "execution")
	full := graph.NewNodeUpsert(graph.LabelTactic, graph.KeyShortname, "execution").
		WithProperty("name", "Execution").
		WithProperty("description", "Run malicious code").
		WithProperty("kill_chain_order", 4)

	// Stub first, full second.
	m := NewMemory()
	require.NoError(t, m.UpsertNode(ctx, stub))
	require.NoError(t, m.UpsertNode(ctx, full))
	require.Equal(t, 1, m.NodeCount())
	props, _ := m.Node(graph.LabelTactic, graph.KeyShortname, "execution")
	assert.Equal(t, "Execution", props["name"])
	assert.Equal(t, 4, props["kill_chain_order"])

	// Full first, stub second: the stub must not clobber anything.
	m2 := NewMemory()
	require.NoError(t, m2.UpsertNode(ctx, full))
	require.NoError(t, m2.UpsertNode(ctx, stub))
	require.Equal(t, 1, m2.NodeCount())
	props2, _ := m2.Node(graph.LabelTactic, graph.KeyShortname, "execution")
	assert.Equal(t, props, props2, "stub and full upserts must commute")
}

func TestMemory_UpsertEdgeRequiresBothEndpoints(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	edge := graph.NewEdgeUpsert(graph.EdgeUses, graph.LabelGroup, "intrusion-set--g", graph.LabelTechnique, "attack-pattern--t")

	// Neither endpoint exists: silent no-op.
	require.NoError(t, m.UpsertEdge(ctx, edge))
	assert.Equal(t, 0, m.EdgeCount())

	require.NoError(t, m.UpsertNode(ctx, graph.NewNodeUpsert(graph.LabelGroup, graph.KeyStixID, "intrusion-set--g")))

	// Only the source exists: still a no-op.
	require.NoError(t, m.UpsertEdge(ctx, edge))
	assert.Equal(t, 0, m.EdgeCount())

	require.NoError(t, m.UpsertNode(ctx, graph.NewNodeUpsert(graph.LabelTechnique, graph.KeyStixID, "attack-pattern--t")))

	require.NoError(t, m.UpsertEdge(ctx, edge))
	assert.Equal(t, 1, m.EdgeCount())
	assert.True(t, m.HasEdge(edge))

	// Re-application must not create a parallel duplicate.
	require.NoError(t, m.UpsertEdge(ctx, edge))
	assert.Equal(t, 1, m.EdgeCount())
}

func TestMemory_EdgeEndpointLabelMatters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// A node exists with this key, but under a different label: the edge
	// must not attach (this is what makes the three-way "uses" fan-out
	// produce exactly one edge).
	require.NoError(t, m.UpsertNode(ctx, graph.NewNodeUpsert(graph.LabelMalware, graph.KeyStixID, "malware--m")))
	require.NoError(t, m.UpsertNode(ctx, graph.NewNodeUpsert(graph.LabelGroup, graph.KeyStixID, "intrusion-set--g")))

	asTechnique := graph.NewEdgeUpsert(graph.EdgeUses, graph.LabelGroup, "intrusion-set--g", graph.LabelTechnique, "malware--m")
	asMalware := graph.NewEdgeUpsert(graph.EdgeUses, graph.LabelGroup, "intrusion-set--g", graph.LabelMalware, "malware--m")

	require.NoError(t, m.UpsertEdge(ctx, asTechnique))
	require.NoError(t, m.UpsertEdge(ctx, asMalware))

	assert.Equal(t, 1, m.EdgeCount())
	assert.False(t, m.HasEdge(asTechnique))
	assert.True(t, m.HasEdge(asMalware))
}

func TestMemory_InvalidUpsertsRejected(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.UpsertNode(ctx, graph.NodeUpsert{Label: graph.LabelGroup})
	assert.ErrorIs(t, err, graph.ErrInvalidUpsert)

	err = m.UpsertEdge(ctx, graph.EdgeUpsert{Type: graph.EdgeUses})
	assert.ErrorIs(t, err, graph.ErrInvalidUpsert)
}
