package knowledge

import "context"

// Store is the persistence boundary for the engine. Implementations must make
// each call atomic at the granularity of one record: a node update either
// lands whole or not at all, and the same holds for edges, links and
// structure elements. Find methods return (nil, nil) when nothing matches.
//
// The engine enforces the (entityType, canonicalName) and
// (subjectID, predicate, objectID) uniqueness invariants itself; stores with
// native unique-constraint support should enforce them as well.
type Store interface {
	// Nodes
	CreateNode(ctx context.Context, node *KnowledgeNode) (*KnowledgeNode, error)
	UpdateNode(ctx context.Context, node *KnowledgeNode) error
	GetNode(ctx context.Context, id int64) (*KnowledgeNode, error)
	FindNodeByCanonicalName(ctx context.Context, entityType EntityType, nameLower string) (*KnowledgeNode, error)
	FindNodesByAlias(ctx context.Context, entityType EntityType, aliasLower string) ([]*KnowledgeNode, error)
	NodesByType(ctx context.Context, entityType EntityType) ([]*KnowledgeNode, error)
	ListNodes(ctx context.Context) ([]*KnowledgeNode, error)

	// Links (append-only)
	CreateLink(ctx context.Context, link *EntityKnowledgeLink) error

	// Edges
	GetEdge(ctx context.Context, subjectID int64, predicate string, objectID int64) (*KnowledgeEdge, error)
	CreateEdge(ctx context.Context, edge *KnowledgeEdge) (*KnowledgeEdge, error)
	UpdateEdge(ctx context.Context, edge *KnowledgeEdge) error
	// UpdateEdgeStrength writes only the strength field, leaving the mention
	// statistics and timestamps untouched. The decay pass runs concurrently
	// with aggregation and must not clobber a fresher full record.
	UpdateEdgeStrength(ctx context.Context, edgeID int64, strength float64) error
	ListEdges(ctx context.Context) ([]*KnowledgeEdge, error)
	EdgesBySubject(ctx context.Context, subjectID int64) ([]*KnowledgeEdge, error)
	EdgesByObject(ctx context.Context, objectID int64) ([]*KnowledgeEdge, error)

	// Structure elements
	FindStructure(ctx context.Context, structureType StructureType, nameLower string) (*StructureElement, error)
	CreateStructure(ctx context.Context, element *StructureElement) (*StructureElement, error)
	UpdateStructure(ctx context.Context, element *StructureElement) error
	ListStructures(ctx context.Context) ([]*StructureElement, error)
}

// Embedder produces a semantic embedding for a short text, typically an
// entity name. Implementations live outside the core; the engine only uses
// the vectors for cosine scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
