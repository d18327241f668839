package knowledge_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgbrain/backend/internal/knowledge"
)

func resolveNode(t *testing.T, engine *knowledge.GraphEngine, name, entityType string) *knowledge.KnowledgeNode {
	t.Helper()
	node, _, err := engine.Resolve(context.Background(), knowledge.ObservedEntity{Name: name, Type: entityType, Confidence: 0.9})
	require.NoError(t, err)
	return node
}

func TestAggregate_FirstObservationCreatesEdge(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	edge, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 1.0)
	require.NoError(t, err)

	assert.Equal(t, jef.ID, edge.SubjectID)
	assert.Equal(t, cresco.ID, edge.ObjectID)
	assert.Equal(t, "WORKS_ON", edge.Predicate)
	assert.Equal(t, 1, edge.MentionCount)
	assert.Equal(t, 1, edge.ContextCount)
	assert.Equal(t, 1.0, edge.AverageConfidence)
	assert.Equal(t, testNow, edge.FirstSeen)
	assert.Equal(t, testNow, edge.LastSeen)

	// sqrt(0.1 * 1.0 * 0.2)
	assert.InDelta(t, math.Sqrt(0.02), edge.Strength, 1e-9)
}

func TestAggregate_RepeatObservationsStrengthenTheSameEdge(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	var edge *knowledge.KnowledgeEdge
	var err error
	prev := 0.0
	for i := 0; i < 10; i++ {
		edge, err = engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 1.0)
		require.NoError(t, err)
		assert.Greater(t, edge.Strength, prev, "strength grows monotonically with evidence")
		prev = edge.Strength
	}

	assert.Equal(t, 10, edge.MentionCount)
	assert.Equal(t, 10, edge.ContextCount)
	assert.Equal(t, 1.0, edge.Strength, "both weights saturated at perfect confidence")

	edges, err := store.ListEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 1, "the triple owns exactly one edge")
}

func TestAggregate_StrengthNeverExceedsOne(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	var edge *knowledge.KnowledgeEdge
	var err error
	for i := 0; i < 50; i++ {
		edge, err = engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 1.0)
		require.NoError(t, err)
	}
	assert.Equal(t, 1.0, edge.Strength)
	assert.Equal(t, 50, edge.MentionCount)
}

func TestAggregate_ConfidenceIsRunningMean(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	_, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.9)
	require.NoError(t, err)
	edge, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 0.7, edge.AverageConfidence, 1e-9)
	// sqrt(0.2 * 0.7 * 0.4)
	assert.InDelta(t, math.Sqrt(0.2*0.7*0.4), edge.Strength, 1e-9)
}

func TestAggregate_DirectionAndPredicateDistinguishEdges(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	_, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.9)
	require.NoError(t, err)
	_, err = engine.Aggregate(ctx, jef, "LEADS", cresco, 0.9)
	require.NoError(t, err)
	_, err = engine.Aggregate(ctx, cresco, "WORKS_ON", jef, 0.9)
	require.NoError(t, err)

	edges, err := store.ListEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestAggregate_RejectsMalformedInput(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	_, err := engine.Aggregate(ctx, nil, "WORKS_ON", cresco, 0.9)
	assert.Error(t, err)
	_, err = engine.Aggregate(ctx, jef, "   ", cresco, 0.9)
	assert.Error(t, err)
}

func TestAggregate_LastSeenAdvances(t *testing.T) {
	engine, _, clock := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")

	first, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.9)
	require.NoError(t, err)

	clock.now = testNow.Add(48 * time.Hour)
	second, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.9)
	require.NoError(t, err)

	assert.Equal(t, first.FirstSeen, second.FirstSeen)
	assert.Equal(t, clock.now, second.LastSeen)
}
