package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"orgbrain/backend/internal/knowledge"
)

// ============================================================================
// Edge Operations
// ============================================================================

func edgeProps(edge *knowledge.KnowledgeEdge) map[string]interface{} {
	return map[string]interface{}{
		"id":                 edge.ID,
		"subject_id":         edge.SubjectID,
		"predicate":          edge.Predicate,
		"object_id":          edge.ObjectID,
		"triple_key":         tripleKey(edge.SubjectID, edge.Predicate, edge.ObjectID),
		"strength":           edge.Strength,
		"mention_count":      edge.MentionCount,
		"context_count":      edge.ContextCount,
		"average_confidence": edge.AverageConfidence,
		"first_seen":         formatTime(edge.FirstSeen),
		"last_seen":          formatTime(edge.LastSeen),
	}
}

func edgeFromProps(props map[string]interface{}) *knowledge.KnowledgeEdge {
	return &knowledge.KnowledgeEdge{
		ID:                getInt64Prop(props, "id"),
		SubjectID:         getInt64Prop(props, "subject_id"),
		Predicate:         getStringProp(props, "predicate"),
		ObjectID:          getInt64Prop(props, "object_id"),
		Strength:          getFloatProp(props, "strength"),
		MentionCount:      getIntProp(props, "mention_count"),
		ContextCount:      getIntProp(props, "context_count"),
		AverageConfidence: getFloatProp(props, "average_confidence"),
		FirstSeen:         getTimeProp(props, "first_seen"),
		LastSeen:          getTimeProp(props, "last_seen"),
	}
}

func tripleKey(subjectID int64, predicate string, objectID int64) string {
	return fmt.Sprintf("%d|%s|%d", subjectID, predicate, objectID)
}

func (s *Store) GetEdge(ctx context.Context, subjectID int64, predicate string, objectID int64) (*knowledge.KnowledgeEdge, error) {
	query := `
		MATCH (:Entity {id: $subjectID})-[r:REL {predicate: $predicate}]->(:Entity {id: $objectID})
		RETURN r {.*} as props
	`
	edges, err := s.queryEdges(ctx, query, map[string]interface{}{
		"subjectID": subjectID,
		"predicate": predicate,
		"objectID":  objectID,
	})
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return edges[0], nil
}

// CreateEdge allocates an id and materializes the relationship between the
// two entity nodes
func (s *Store) CreateEdge(ctx context.Context, edge *knowledge.KnowledgeEdge) (*knowledge.KnowledgeEdge, error) {
	id, err := s.nextID(ctx, "edge")
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	created := *edge
	created.ID = id

	query := `
		MATCH (a:Entity {id: $subjectID})
		MATCH (b:Entity {id: $objectID})
		CREATE (a)-[r:REL]->(b)
		SET r = $props
		RETURN r.id as id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"subjectID": created.SubjectID,
		"objectID":  created.ObjectID,
		"props":     edgeProps(&created),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create edge: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify edge creation: %w", err)
	}

	return &created, nil
}

// UpdateEdge replaces the relationship's properties as one atomic write
func (s *Store) UpdateEdge(ctx context.Context, edge *knowledge.KnowledgeEdge) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH ()-[r:REL {id: $id}]->()
		SET r = $props
		RETURN r.id as id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":    edge.ID,
		"props": edgeProps(edge),
	})
	if err != nil {
		return fmt.Errorf("failed to update edge: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("failed to verify edge update: %w", err)
	}
	return nil
}

// UpdateEdgeStrength writes only the strength property so a decay pass never
// overwrites mention statistics refreshed by a concurrent aggregation
func (s *Store) UpdateEdgeStrength(ctx context.Context, edgeID int64, strength float64) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MATCH ()-[r:REL {id: $id}]->()
		SET r.strength = $strength
		RETURN r.id as id
	`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":       edgeID,
		"strength": strength,
	})
	if err != nil {
		return fmt.Errorf("failed to update edge strength: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("failed to verify edge strength update: %w", err)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]*knowledge.KnowledgeEdge, error) {
	query := `MATCH ()-[r:REL]->() RETURN r {.*} as props`
	return s.queryEdges(ctx, query, nil)
}

func (s *Store) EdgesBySubject(ctx context.Context, subjectID int64) ([]*knowledge.KnowledgeEdge, error) {
	query := `MATCH (:Entity {id: $subjectID})-[r:REL]->() RETURN r {.*} as props`
	return s.queryEdges(ctx, query, map[string]interface{}{"subjectID": subjectID})
}

func (s *Store) EdgesByObject(ctx context.Context, objectID int64) ([]*knowledge.KnowledgeEdge, error) {
	query := `MATCH ()-[r:REL]->(:Entity {id: $objectID}) RETURN r {.*} as props`
	return s.queryEdges(ctx, query, map[string]interface{}{"objectID": objectID})
}

func (s *Store) queryEdges(ctx context.Context, query string, params map[string]interface{}) ([]*knowledge.KnowledgeEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}

	var edges []*knowledge.KnowledgeEdge
	for result.Next(ctx) {
		props, ok := recordProps(result.Record())
		if !ok {
			continue
		}
		edges = append(edges, edgeFromProps(props))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge records: %w", err)
	}
	return edges, nil
}
