package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"orgbrain/backend/internal/knowledge"
)

// ============================================================================
// Node and Link Operations
// ============================================================================

func nodeProps(node *knowledge.KnowledgeNode) map[string]interface{} {
	return map[string]interface{}{
		"id":                   node.ID,
		"canonical_name":       node.CanonicalName,
		"canonical_name_lower": strings.ToLower(node.CanonicalName),
		"entity_type":          string(node.EntityType),
		"aliases":              node.Aliases,
		"mention_count":        node.MentionCount,
		"average_confidence":   node.AverageConfidence,
		"first_seen":           formatTime(node.FirstSeen),
		"last_seen":            formatTime(node.LastSeen),
		"pillars":              node.Metadata.Pillars,
		"team_names":           node.Metadata.TeamNames,
		"roles":                node.Metadata.Roles,
		"name_embedding":       toFloat64Slice(node.NameEmbedding),
	}
}

func nodeFromProps(props map[string]interface{}) *knowledge.KnowledgeNode {
	return &knowledge.KnowledgeNode{
		ID:                getInt64Prop(props, "id"),
		CanonicalName:     getStringProp(props, "canonical_name"),
		EntityType:        knowledge.EntityType(getStringProp(props, "entity_type")),
		Aliases:           getStringSliceProp(props, "aliases"),
		MentionCount:      getIntProp(props, "mention_count"),
		AverageConfidence: getFloatProp(props, "average_confidence"),
		FirstSeen:         getTimeProp(props, "first_seen"),
		LastSeen:          getTimeProp(props, "last_seen"),
		Metadata: knowledge.NodeMetadata{
			Pillars:   getStringSliceProp(props, "pillars"),
			TeamNames: getStringSliceProp(props, "team_names"),
			Roles:     getStringSliceProp(props, "roles"),
		},
		NameEmbedding: getFloat32SliceProp(props, "name_embedding"),
	}
}

// CreateNode allocates an id and writes the node in one statement
func (s *Store) CreateNode(ctx context.Context, node *knowledge.KnowledgeNode) (*knowledge.KnowledgeNode, error) {
	id, err := s.nextID(ctx, "node")
	if err != nil {
		return nil, err
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	created := *node
	created.ID = id

	query := `CREATE (n:Entity) SET n = $props RETURN n.id as id`
	result, err := session.Run(ctx, query, map[string]interface{}{"props": nodeProps(&created)})
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify node creation: %w", err)
	}

	return &created, nil
}

// UpdateNode replaces the node's properties as one atomic write
func (s *Store) UpdateNode(ctx context.Context, node *knowledge.KnowledgeNode) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `MATCH (n:Entity {id: $id}) SET n = $props RETURN n.id as id`
	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":    node.ID,
		"props": nodeProps(node),
	})
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("failed to verify node update: %w", err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id int64) (*knowledge.KnowledgeNode, error) {
	query := `MATCH (n:Entity {id: $id}) RETURN n {.*} as props`
	return s.queryOneNode(ctx, query, map[string]interface{}{"id": id})
}

func (s *Store) FindNodeByCanonicalName(ctx context.Context, entityType knowledge.EntityType, nameLower string) (*knowledge.KnowledgeNode, error) {
	query := `
		MATCH (n:Entity {entity_type: $entityType, canonical_name_lower: $nameLower})
		RETURN n {.*} as props
	`
	return s.queryOneNode(ctx, query, map[string]interface{}{
		"entityType": string(entityType),
		"nameLower":  nameLower,
	})
}

func (s *Store) FindNodesByAlias(ctx context.Context, entityType knowledge.EntityType, aliasLower string) ([]*knowledge.KnowledgeNode, error) {
	query := `
		MATCH (n:Entity {entity_type: $entityType})
		WHERE $aliasLower IN n.aliases
		RETURN n {.*} as props
	`
	return s.queryNodes(ctx, query, map[string]interface{}{
		"entityType": string(entityType),
		"aliasLower": aliasLower,
	})
}

func (s *Store) NodesByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.KnowledgeNode, error) {
	query := `MATCH (n:Entity {entity_type: $entityType}) RETURN n {.*} as props`
	return s.queryNodes(ctx, query, map[string]interface{}{"entityType": string(entityType)})
}

func (s *Store) ListNodes(ctx context.Context) ([]*knowledge.KnowledgeNode, error) {
	query := `MATCH (n:Entity) RETURN n {.*} as props`
	return s.queryNodes(ctx, query, nil)
}

func (s *Store) queryOneNode(ctx context.Context, query string, params map[string]interface{}) (*knowledge.KnowledgeNode, error) {
	nodes, err := s.queryNodes(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func (s *Store) queryNodes(ctx context.Context, query string, params map[string]interface{}) ([]*knowledge.KnowledgeNode, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}

	var nodes []*knowledge.KnowledgeNode
	for result.Next(ctx) {
		props, ok := recordProps(result.Record())
		if !ok {
			continue
		}
		nodes = append(nodes, nodeFromProps(props))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read node records: %w", err)
	}
	return nodes, nil
}

// CreateLink appends one traceability record; links are never updated
func (s *Store) CreateLink(ctx context.Context, link *knowledge.EntityKnowledgeLink) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		CREATE (l:EntityLink {
			id: $id,
			entity_id: $entityID,
			node_id: $nodeID,
			similarity: $similarity,
			method: $method,
			created_at: $createdAt
		})
	`
	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":         link.ID,
		"entityID":   link.EntityID,
		"nodeID":     link.NodeID,
		"similarity": link.Similarity,
		"method":     string(link.Method),
		"createdAt":  formatTime(link.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to create entity link: %w", err)
	}
	return nil
}

func recordProps(record *neo4j.Record) (map[string]interface{}, bool) {
	value, ok := record.Get("props")
	if !ok {
		return nil, false
	}
	props, ok := value.(map[string]interface{})
	return props, ok
}
