package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"orgbrain/backend/internal/knowledge"
)

// ============================================================================
// Structure Element Operations
// ============================================================================

func structureProps(element *knowledge.StructureElement) map[string]interface{} {
	return map[string]interface{}{
		"id":            element.ID,
		"type":          string(element.Type),
		"name":          element.Name,
		"name_lower":    strings.ToLower(element.Name),
		"parent_id":     element.ParentID,
		"mention_count": element.MentionCount,
		"context_count": element.ContextCount,
		"first_seen":    formatTime(element.FirstSeen),
		"last_seen":     formatTime(element.LastSeen),
		"node_ids":      element.NodeIDs,
	}
}

func structureFromProps(props map[string]interface{}) *knowledge.StructureElement {
	return &knowledge.StructureElement{
		ID:           getInt64Prop(props, "id"),
		Type:         knowledge.StructureType(getStringProp(props, "type")),
		Name:         getStringProp(props, "name"),
		ParentID:     getInt64Prop(props, "parent_id"),
		MentionCount: getIntProp(props, "mention_count"),
		ContextCount: getIntProp(props, "context_count"),
		FirstSeen:    getTimeProp(props, "first_seen"),
		LastSeen:     getTimeProp(props, "last_seen"),
		NodeIDs:      getInt64SliceProp(props, "node_ids"),
	}
}

func (s *Store) FindStructure(ctx context.Context, structureType knowledge.StructureType, nameLower string) (*knowledge.StructureElement, error) {
	query := `
		MATCH (st:Structure {type: $type, name_lower: $nameLower})
		RETURN st {.*} as props
	`
	elements, err := s.queryStructures(ctx, query, map[string]interface{}{
		"type":      string(structureType),
		"nameLower": nameLower,
	})
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, nil
	}
	return elements[0], nil
}

func (s *Store) CreateStructure(ctx context.Context, element *knowledge.StructureElement) (*knowledge.StructureElement, error) {
	id, err := s.nextID(ctx, "structure")
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	created := *element
	created.ID = id

	query := `CREATE (st:Structure) SET st = $props RETURN st.id as id`
	result, err := session.Run(ctx, query, map[string]interface{}{"props": structureProps(&created)})
	if err != nil {
		return nil, fmt.Errorf("failed to create structure element: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify structure creation: %w", err)
	}

	return &created, nil
}

func (s *Store) UpdateStructure(ctx context.Context, element *knowledge.StructureElement) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `MATCH (st:Structure {id: $id}) SET st = $props RETURN st.id as id`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":    element.ID,
		"props": structureProps(element),
	})
	if err != nil {
		return fmt.Errorf("failed to update structure element: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("failed to verify structure update: %w", err)
	}
	return nil
}

func (s *Store) ListStructures(ctx context.Context) ([]*knowledge.StructureElement, error) {
	query := `MATCH (st:Structure) RETURN st {.*} as props`
	return s.queryStructures(ctx, query, nil)
}

func (s *Store) queryStructures(ctx context.Context, query string, params map[string]interface{}) ([]*knowledge.StructureElement, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query structure elements: %w", err)
	}

	var elements []*knowledge.StructureElement
	for result.Next(ctx) {
		props, ok := recordProps(result.Record())
		if !ok {
			continue
		}
		elements = append(elements, structureFromProps(props))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read structure records: %w", err)
	}
	return elements, nil
}
