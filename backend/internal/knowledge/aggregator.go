package knowledge

import (
	"context"
	"fmt"
	"math"
	"strings"

	apperrors "orgbrain/backend/pkg/errors"
)

// ============================================================================
// Relationship Aggregation
// ============================================================================

// Aggregate merges one observed (subject, predicate, object) triple into the
// single edge for that triple, creating it on first sight. Each call is
// assumed to originate from a distinct observation context, so both the
// mention and context counters advance together.
func (e *GraphEngine) Aggregate(ctx context.Context, subject *KnowledgeNode, predicate string, object *KnowledgeNode, confidence float64) (*KnowledgeEdge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aggregate(ctx, subject, predicate, object, confidence)
}

func (e *GraphEngine) aggregate(ctx context.Context, subject *KnowledgeNode, predicate string, object *KnowledgeNode, confidence float64) (*KnowledgeEdge, error) {
	if subject == nil || object == nil {
		return nil, apperrors.NewMalformedObservation("relationship", "subject and object nodes are required")
	}
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return nil, apperrors.NewMalformedObservation("relationship", "predicate is required")
	}

	now := e.now()

	edge, err := e.store.GetEdge(ctx, subject.ID, predicate, object.ID)
	if err != nil {
		return nil, fmt.Errorf("edge lookup failed: %w", err)
	}

	if edge == nil {
		edge = &KnowledgeEdge{
			SubjectID:         subject.ID,
			Predicate:         predicate,
			ObjectID:          object.ID,
			MentionCount:      1,
			ContextCount:      1,
			AverageConfidence: confidence,
			FirstSeen:         now,
			LastSeen:          now,
		}
		edge.Strength = edgeStrength(edge.MentionCount, edge.ContextCount, edge.AverageConfidence)

		created, err := e.store.CreateEdge(ctx, edge)
		if err != nil {
			return nil, fmt.Errorf("edge creation failed: %w", err)
		}
		return created, nil
	}

	edge.MentionCount++
	edge.ContextCount++
	edge.LastSeen = now
	edge.AverageConfidence = (edge.AverageConfidence*float64(edge.MentionCount-1) + confidence) / float64(edge.MentionCount)
	edge.Strength = edgeStrength(edge.MentionCount, edge.ContextCount, edge.AverageConfidence)

	if err := e.store.UpdateEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("edge update failed: %w", err)
	}
	return edge, nil
}

// edgeStrength combines evidence volume, evidence quality and context
// diversity. The square root keeps the product of three sub-unity weights
// from crushing the score: a relationship seen many times with moderate
// confidence should not rank below one seen twice with perfect confidence.
func edgeStrength(mentionCount, contextCount int, averageConfidence float64) float64 {
	mentionWeight := math.Min(float64(mentionCount)/10.0, 1.0)
	diversityWeight := math.Min(float64(contextCount)/5.0, 1.0)

	strength := math.Sqrt(mentionWeight * averageConfidence * diversityWeight)
	return math.Min(strength, 1.0)
}
