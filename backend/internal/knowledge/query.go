package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "orgbrain/backend/pkg/errors"
)

// ============================================================================
// Read-Only Query Layer
// ============================================================================

// RelationshipView is one edge annotated with its neighbor for presentation
type RelationshipView struct {
	Predicate    string     `json:"predicate"`
	NeighborName string     `json:"neighbor_name"`
	NeighborType EntityType `json:"neighbor_type"`
	Strength     float64    `json:"strength"`
	MentionCount int        `json:"mention_count"`
	ContextCount int        `json:"context_count"`
	LastSeen     time.Time  `json:"last_seen"`
}

// EntityKnowledge is everything the graph knows about one entity
type EntityKnowledge struct {
	ID                int64              `json:"id"`
	CanonicalName     string             `json:"canonical_name"`
	EntityType        EntityType         `json:"entity_type"`
	Aliases           []string           `json:"aliases"`
	MentionCount      int                `json:"mention_count"`
	AverageConfidence float64            `json:"average_confidence"`
	FirstSeen         time.Time          `json:"first_seen"`
	LastSeen          time.Time          `json:"last_seen"`
	Metadata          NodeMetadata       `json:"metadata"`
	Outgoing          []RelationshipView `json:"outgoing"`
	Incoming          []RelationshipView `json:"incoming"`
}

// StructureView is one discovered structure element with its children
type StructureView struct {
	ID           int64           `json:"id"`
	Type         StructureType   `json:"type"`
	Name         string          `json:"name"`
	MentionCount int             `json:"mention_count"`
	ContextCount int             `json:"context_count"`
	NodeCount    int             `json:"node_count"`
	Children     []StructureView `json:"children,omitempty"`
}

// DiscoveredStructures is the full discovered hierarchy: pillars with their
// nested teams and roles, plus elements learned without a pillar parent
type DiscoveredStructures struct {
	Pillars    []StructureView `json:"pillars"`
	Unparented []StructureView `json:"unparented,omitempty"`
}

// NodeStat summarizes one node for graph statistics
type NodeStat struct {
	CanonicalName string     `json:"canonical_name"`
	EntityType    EntityType `json:"entity_type"`
	MentionCount  int        `json:"mention_count"`
}

// EdgeStat summarizes one edge for graph statistics
type EdgeStat struct {
	SubjectName string  `json:"subject_name"`
	Predicate   string  `json:"predicate"`
	ObjectName  string  `json:"object_name"`
	Strength    float64 `json:"strength"`
}

// GraphStats is the aggregate shape of the graph
type GraphStats struct {
	TotalNodes       int                `json:"total_nodes"`
	NodesByType      map[EntityType]int `json:"nodes_by_type"`
	TotalEdges       int                `json:"total_edges"`
	TopNodes         []NodeStat         `json:"top_nodes"`
	TopRelationships []EdgeStat         `json:"top_relationships"`
}

// GetEntityKnowledge returns the full record for a named entity. Queries
// require an exact or alias hit; they never merge, so fuzzy matching does not
// apply here. entityType narrows the lookup when non-empty.
func (e *GraphEngine) GetEntityKnowledge(ctx context.Context, name, entityType string) (*EntityKnowledge, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return nil, apperrors.NewMalformedObservation("entity", "name is required")
	}

	node, err := e.lookupByName(ctx, nameLower, entityType)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, apperrors.NewNodeNotFound(name)
	}

	outgoing, err := e.relationshipViews(ctx, node, true)
	if err != nil {
		return nil, err
	}
	incoming, err := e.relationshipViews(ctx, node, false)
	if err != nil {
		return nil, err
	}

	return &EntityKnowledge{
		ID:                node.ID,
		CanonicalName:     node.CanonicalName,
		EntityType:        node.EntityType,
		Aliases:           node.Aliases,
		MentionCount:      node.MentionCount,
		AverageConfidence: node.AverageConfidence,
		FirstSeen:         node.FirstSeen,
		LastSeen:          node.LastSeen,
		Metadata:          node.Metadata,
		Outgoing:          outgoing,
		Incoming:          incoming,
	}, nil
}

// lookupByName finds a node by exact canonical name or alias. With a type it
// uses the indexed store lookups; without one it scans all nodes. When
// several nodes carry the name as an alias the best-evidenced one wins.
func (e *GraphEngine) lookupByName(ctx context.Context, nameLower, entityType string) (*KnowledgeNode, error) {
	if entityType != "" {
		etype := NormalizeEntityType(entityType)
		node, err := e.store.FindNodeByCanonicalName(ctx, etype, nameLower)
		if err != nil {
			return nil, fmt.Errorf("exact lookup failed: %w", err)
		}
		if node != nil {
			return node, nil
		}
		aliasNodes, err := e.store.FindNodesByAlias(ctx, etype, nameLower)
		if err != nil {
			return nil, fmt.Errorf("alias lookup failed: %w", err)
		}
		return mostMentioned(aliasNodes), nil
	}

	nodes, err := e.store.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("node listing failed: %w", err)
	}
	var matches []*KnowledgeNode
	for _, node := range nodes {
		if strings.ToLower(node.CanonicalName) == nameLower || node.HasAlias(nameLower) {
			matches = append(matches, node)
		}
	}
	return mostMentioned(matches), nil
}

func mostMentioned(nodes []*KnowledgeNode) *KnowledgeNode {
	var best *KnowledgeNode
	for _, node := range nodes {
		if best == nil || node.MentionCount > best.MentionCount {
			best = node
		}
	}
	return best
}

func (e *GraphEngine) relationshipViews(ctx context.Context, node *KnowledgeNode, outgoing bool) ([]RelationshipView, error) {
	var edges []*KnowledgeEdge
	var err error
	if outgoing {
		edges, err = e.store.EdgesBySubject(ctx, node.ID)
	} else {
		edges, err = e.store.EdgesByObject(ctx, node.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("edge lookup failed: %w", err)
	}

	views := make([]RelationshipView, 0, len(edges))
	for _, edge := range edges {
		neighborID := edge.ObjectID
		if !outgoing {
			neighborID = edge.SubjectID
		}
		neighbor, err := e.store.GetNode(ctx, neighborID)
		if err != nil {
			return nil, fmt.Errorf("neighbor lookup failed: %w", err)
		}
		view := RelationshipView{
			Predicate:    edge.Predicate,
			Strength:     edge.Strength,
			MentionCount: edge.MentionCount,
			ContextCount: edge.ContextCount,
			LastSeen:     edge.LastSeen,
		}
		if neighbor != nil {
			view.NeighborName = neighbor.CanonicalName
			view.NeighborType = neighbor.EntityType
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].Strength > views[j].Strength })
	return views, nil
}

// GetDiscoveredStructures returns the learned hierarchy as a tree, pillars
// first, with teams and roles nested by parent pointer. Teams and roles that
// never acquired a parent are reported separately rather than dropped.
func (e *GraphEngine) GetDiscoveredStructures(ctx context.Context) (*DiscoveredStructures, error) {
	elements, err := e.store.ListStructures(ctx)
	if err != nil {
		return nil, fmt.Errorf("structure listing failed: %w", err)
	}

	children := make(map[int64][]*StructureElement)
	for _, el := range elements {
		if el.ParentID != 0 {
			children[el.ParentID] = append(children[el.ParentID], el)
		}
	}

	var build func(el *StructureElement) StructureView
	build = func(el *StructureElement) StructureView {
		view := StructureView{
			ID:           el.ID,
			Type:         el.Type,
			Name:         el.Name,
			MentionCount: el.MentionCount,
			ContextCount: el.ContextCount,
			NodeCount:    len(el.NodeIDs),
		}
		kids := children[el.ID]
		sort.Slice(kids, func(i, j int) bool { return kids[i].MentionCount > kids[j].MentionCount })
		for _, child := range kids {
			view.Children = append(view.Children, build(child))
		}
		return view
	}

	result := &DiscoveredStructures{}
	for _, el := range elements {
		switch {
		case el.Type == StructurePillar:
			result.Pillars = append(result.Pillars, build(el))
		case el.ParentID == 0:
			result.Unparented = append(result.Unparented, build(el))
		}
	}

	sort.Slice(result.Pillars, func(i, j int) bool { return result.Pillars[i].MentionCount > result.Pillars[j].MentionCount })
	sort.Slice(result.Unparented, func(i, j int) bool { return result.Unparented[i].MentionCount > result.Unparented[j].MentionCount })
	return result, nil
}

// ComputeGraphStats aggregates node and edge statistics: totals, counts by
// type, the ten most-mentioned nodes and the strongest relationships
func (e *GraphEngine) ComputeGraphStats(ctx context.Context) (*GraphStats, error) {
	nodes, err := e.store.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("node listing failed: %w", err)
	}
	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("edge listing failed: %w", err)
	}

	stats := &GraphStats{
		TotalNodes:  len(nodes),
		NodesByType: make(map[EntityType]int),
		TotalEdges:  len(edges),
	}

	byID := make(map[int64]*KnowledgeNode, len(nodes))
	for _, node := range nodes {
		stats.NodesByType[node.EntityType]++
		byID[node.ID] = node
	}

	sorted := make([]*KnowledgeNode, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MentionCount > sorted[j].MentionCount })
	for i, node := range sorted {
		if i == 10 {
			break
		}
		stats.TopNodes = append(stats.TopNodes, NodeStat{
			CanonicalName: node.CanonicalName,
			EntityType:    node.EntityType,
			MentionCount:  node.MentionCount,
		})
	}

	sortedEdges := make([]*KnowledgeEdge, len(edges))
	copy(sortedEdges, edges)
	sort.Slice(sortedEdges, func(i, j int) bool { return sortedEdges[i].Strength > sortedEdges[j].Strength })
	for i, edge := range sortedEdges {
		if i == 10 {
			break
		}
		stat := EdgeStat{Predicate: edge.Predicate, Strength: edge.Strength}
		if subject, ok := byID[edge.SubjectID]; ok {
			stat.SubjectName = subject.CanonicalName
		}
		if object, ok := byID[edge.ObjectID]; ok {
			stat.ObjectName = object.CanonicalName
		}
		stats.TopRelationships = append(stats.TopRelationships, stat)
	}

	return stats, nil
}
