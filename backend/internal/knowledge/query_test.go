package knowledge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgbrain/backend/internal/knowledge"
	apperrors "orgbrain/backend/pkg/errors"
)

func TestGetEntityKnowledge_UnknownNameIsNotFound(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.GetEntityKnowledge(context.Background(), "Nobody", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeGraph))
}

func TestGetEntityKnowledge_EmptyNameIsRejected(t *testing.T) {
	engine, _, _ := newTestEngine()

	_, err := engine.GetEntityKnowledge(context.Background(), "   ", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestGetEntityKnowledge_FindsByAlias(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	node, _, err := engine.Resolve(ctx, knowledge.ObservedEntity{Name: "Jef Adriaenssens", Type: "PERSON", Confidence: 0.9})
	require.NoError(t, err)
	_, _, err = engine.Resolve(ctx, knowledge.ObservedEntity{Name: "Jef A", Type: "PERSON", Confidence: 0.5})
	require.NoError(t, err)

	record, err := engine.GetEntityKnowledge(ctx, "Jef A", "PERSON")
	require.NoError(t, err)
	assert.Equal(t, node.ID, record.ID)
	assert.Equal(t, "Jef Adriaenssens", record.CanonicalName)
	assert.Contains(t, record.Aliases, "jef a")
}

func TestGetEntityKnowledge_NeverMergesFuzzily(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, _, err := engine.Resolve(ctx, knowledge.ObservedEntity{Name: "Jef Adriaenssens", Type: "PERSON", Confidence: 0.9})
	require.NoError(t, err)

	// Resolution would merge this name; queries require an exact or alias hit
	_, err = engine.GetEntityKnowledge(ctx, "Jef Adriaenssns", "PERSON")
	assert.Error(t, err)
}

func TestGetEntityKnowledge_TypedLookupNarrows(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	_, _, err := engine.Resolve(ctx, knowledge.ObservedEntity{Name: "Mercury", Type: "PERSON", Confidence: 0.9})
	require.NoError(t, err)
	project, _, err := engine.Resolve(ctx, knowledge.ObservedEntity{Name: "Mercury", Type: "PROJECT", Confidence: 0.9})
	require.NoError(t, err)

	record, err := engine.GetEntityKnowledge(ctx, "Mercury", "PROJECT")
	require.NoError(t, err)
	assert.Equal(t, project.ID, record.ID)
	assert.Equal(t, knowledge.EntityProject, record.EntityType)
}

func TestGetEntityKnowledge_RelationshipsSortedByStrength(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")
	orion := resolveNode(t, engine, "Orion", "PROJECT")

	_, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.8)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = engine.Aggregate(ctx, jef, "LEADS", orion, 0.9)
		require.NoError(t, err)
	}

	record, err := engine.GetEntityKnowledge(ctx, "Jef", "PERSON")
	require.NoError(t, err)
	require.Len(t, record.Outgoing, 2)
	assert.Equal(t, "LEADS", record.Outgoing[0].Predicate)
	assert.Equal(t, "Orion", record.Outgoing[0].NeighborName)
	assert.Equal(t, "WORKS_ON", record.Outgoing[1].Predicate)
	assert.Greater(t, record.Outgoing[0].Strength, record.Outgoing[1].Strength)
}

func TestComputeGraphStats(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	jef := resolveNode(t, engine, "Jef", "PERSON")
	resolveNode(t, engine, "Jef", "PERSON")
	resolveNode(t, engine, "Jef", "PERSON")
	cresco := resolveNode(t, engine, "CRESCO", "PROJECT")
	orion := resolveNode(t, engine, "Orion", "PROJECT")

	_, err := engine.Aggregate(ctx, jef, "WORKS_ON", cresco, 0.8)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = engine.Aggregate(ctx, jef, "LEADS", orion, 0.9)
		require.NoError(t, err)
	}

	stats, err := engine.ComputeGraphStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalNodes)
	assert.Equal(t, 2, stats.TotalEdges)
	assert.Equal(t, 1, stats.NodesByType[knowledge.EntityPerson])
	assert.Equal(t, 2, stats.NodesByType[knowledge.EntityProject])

	require.NotEmpty(t, stats.TopNodes)
	assert.Equal(t, "Jef", stats.TopNodes[0].CanonicalName)
	assert.Equal(t, 3, stats.TopNodes[0].MentionCount)

	require.Len(t, stats.TopRelationships, 2)
	top := stats.TopRelationships[0]
	assert.Equal(t, "Jef", top.SubjectName)
	assert.Equal(t, "LEADS", top.Predicate)
	assert.Equal(t, "Orion", top.ObjectName)
}

func TestComputeGraphStats_EmptyGraph(t *testing.T) {
	engine, _, _ := newTestEngine()

	stats, err := engine.ComputeGraphStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalNodes)
	assert.Equal(t, 0, stats.TotalEdges)
	assert.Empty(t, stats.TopNodes)
	assert.Empty(t, stats.TopRelationships)
}
