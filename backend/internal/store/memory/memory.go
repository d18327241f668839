// Package memory provides an in-process Store implementation. It backs tests
// and embedded single-process deployments; production graphs use the neo4j
// store.
package memory

import (
	"context"
	"strings"
	"sync"

	"orgbrain/backend/internal/knowledge"
	apperrors "orgbrain/backend/pkg/errors"
)

// Store keeps the whole graph in maps guarded by one RWMutex. Records are
// deep-copied on the way in and out, so callers can never mutate stored state
// except through Update calls, which replace the record atomically.
type Store struct {
	mu sync.RWMutex

	nodes      map[int64]*knowledge.KnowledgeNode
	edges      map[int64]*knowledge.KnowledgeEdge
	links      []*knowledge.EntityKnowledgeLink
	structures map[int64]*knowledge.StructureElement

	nextNodeID      int64
	nextEdgeID      int64
	nextStructureID int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		nodes:      make(map[int64]*knowledge.KnowledgeNode),
		edges:      make(map[int64]*knowledge.KnowledgeEdge),
		structures: make(map[int64]*knowledge.StructureElement),
	}
}

// Nodes

func (s *Store) CreateNode(ctx context.Context, node *knowledge.KnowledgeNode) (*knowledge.KnowledgeNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNodeID++
	stored := copyNode(node)
	stored.ID = s.nextNodeID
	s.nodes[stored.ID] = stored
	return copyNode(stored), nil
}

func (s *Store) UpdateNode(ctx context.Context, node *knowledge.KnowledgeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.ID]; !ok {
		return apperrors.NewGraphOperationFailed("update node", nil)
	}
	s.nodes[node.ID] = copyNode(node)
	return nil
}

func (s *Store) GetNode(ctx context.Context, id int64) (*knowledge.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, nil
	}
	return copyNode(node), nil
}

func (s *Store) FindNodeByCanonicalName(ctx context.Context, entityType knowledge.EntityType, nameLower string) (*knowledge.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, node := range s.nodes {
		if node.EntityType == entityType && strings.ToLower(node.CanonicalName) == nameLower {
			return copyNode(node), nil
		}
	}
	return nil, nil
}

func (s *Store) FindNodesByAlias(ctx context.Context, entityType knowledge.EntityType, aliasLower string) ([]*knowledge.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*knowledge.KnowledgeNode
	for _, node := range s.nodes {
		if node.EntityType != entityType {
			continue
		}
		for _, alias := range node.Aliases {
			if alias == aliasLower {
				matches = append(matches, copyNode(node))
				break
			}
		}
	}
	return matches, nil
}

func (s *Store) NodesByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*knowledge.KnowledgeNode
	for _, node := range s.nodes {
		if node.EntityType == entityType {
			matches = append(matches, copyNode(node))
		}
	}
	return matches, nil
}

func (s *Store) ListNodes(ctx context.Context) ([]*knowledge.KnowledgeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*knowledge.KnowledgeNode, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, copyNode(node))
	}
	return nodes, nil
}

// Links

func (s *Store) CreateLink(ctx context.Context, link *knowledge.EntityKnowledgeLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *link
	s.links = append(s.links, &stored)
	return nil
}

// Links returns all recorded links; used by tests and debugging tools
func (s *Store) Links() []*knowledge.EntityKnowledgeLink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*knowledge.EntityKnowledgeLink, 0, len(s.links))
	for _, link := range s.links {
		copied := *link
		out = append(out, &copied)
	}
	return out
}

// Edges

func (s *Store) GetEdge(ctx context.Context, subjectID int64, predicate string, objectID int64) (*knowledge.KnowledgeEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, edge := range s.edges {
		if edge.SubjectID == subjectID && edge.Predicate == predicate && edge.ObjectID == objectID {
			copied := *edge
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateEdge(ctx context.Context, edge *knowledge.KnowledgeEdge) (*knowledge.KnowledgeEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEdgeID++
	stored := *edge
	stored.ID = s.nextEdgeID
	s.edges[stored.ID] = &stored

	copied := stored
	return &copied, nil
}

func (s *Store) UpdateEdge(ctx context.Context, edge *knowledge.KnowledgeEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[edge.ID]; !ok {
		return apperrors.NewGraphOperationFailed("update edge", nil)
	}
	stored := *edge
	s.edges[edge.ID] = &stored
	return nil
}

func (s *Store) UpdateEdgeStrength(ctx context.Context, edgeID int64, strength float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok {
		return apperrors.NewGraphOperationFailed("update edge strength", nil)
	}
	edge.Strength = strength
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]*knowledge.KnowledgeEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]*knowledge.KnowledgeEdge, 0, len(s.edges))
	for _, edge := range s.edges {
		copied := *edge
		edges = append(edges, &copied)
	}
	return edges, nil
}

func (s *Store) EdgesBySubject(ctx context.Context, subjectID int64) ([]*knowledge.KnowledgeEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*knowledge.KnowledgeEdge
	for _, edge := range s.edges {
		if edge.SubjectID == subjectID {
			copied := *edge
			edges = append(edges, &copied)
		}
	}
	return edges, nil
}

func (s *Store) EdgesByObject(ctx context.Context, objectID int64) ([]*knowledge.KnowledgeEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*knowledge.KnowledgeEdge
	for _, edge := range s.edges {
		if edge.ObjectID == objectID {
			copied := *edge
			edges = append(edges, &copied)
		}
	}
	return edges, nil
}

// Structure elements

func (s *Store) FindStructure(ctx context.Context, structureType knowledge.StructureType, nameLower string) (*knowledge.StructureElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, el := range s.structures {
		if el.Type == structureType && strings.ToLower(el.Name) == nameLower {
			return copyStructure(el), nil
		}
	}
	return nil, nil
}

func (s *Store) CreateStructure(ctx context.Context, element *knowledge.StructureElement) (*knowledge.StructureElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextStructureID++
	stored := copyStructure(element)
	stored.ID = s.nextStructureID
	s.structures[stored.ID] = stored
	return copyStructure(stored), nil
}

func (s *Store) UpdateStructure(ctx context.Context, element *knowledge.StructureElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.structures[element.ID]; !ok {
		return apperrors.NewGraphOperationFailed("update structure", nil)
	}
	s.structures[element.ID] = copyStructure(element)
	return nil
}

func (s *Store) ListStructures(ctx context.Context) ([]*knowledge.StructureElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elements := make([]*knowledge.StructureElement, 0, len(s.structures))
	for _, el := range s.structures {
		elements = append(elements, copyStructure(el))
	}
	return elements, nil
}

// Copy helpers

func copyNode(node *knowledge.KnowledgeNode) *knowledge.KnowledgeNode {
	copied := *node
	copied.Aliases = append([]string(nil), node.Aliases...)
	copied.Metadata.Pillars = append([]string(nil), node.Metadata.Pillars...)
	copied.Metadata.TeamNames = append([]string(nil), node.Metadata.TeamNames...)
	copied.Metadata.Roles = append([]string(nil), node.Metadata.Roles...)
	copied.NameEmbedding = append([]float32(nil), node.NameEmbedding...)
	return &copied
}

func copyStructure(element *knowledge.StructureElement) *knowledge.StructureElement {
	copied := *element
	copied.NodeIDs = append([]int64(nil), element.NodeIDs...)
	return &copied
}
