package knowledge

import (
	"strings"
	"time"

	apperrors "orgbrain/backend/pkg/errors"
)

// ============================================================================
// Knowledge Graph Types
// ============================================================================

// EntityType classifies a canonical entity. The set is open-ended: unknown
// kinds coming from the extraction side are kept as-is rather than rejected.
type EntityType string

const (
	EntityPerson  EntityType = "PERSON"
	EntityProject EntityType = "PROJECT"
	EntityTeam    EntityType = "TEAM"
	EntityDate    EntityType = "DATE"
	EntityOther   EntityType = "OTHER"
)

// NormalizeEntityType maps a raw extracted type string onto an EntityType.
// Unknown values survive uppercased so new extraction types keep working.
func NormalizeEntityType(raw string) EntityType {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return EntityOther
	}
	return EntityType(t)
}

// MatchMethod records how an observed entity was matched to a node
type MatchMethod string

const (
	MatchExact    MatchMethod = "exact"
	MatchAlias    MatchMethod = "alias"
	MatchFuzzy    MatchMethod = "fuzzy"
	MatchFuzzyLow MatchMethod = "fuzzy_low_confidence"
	MatchSemantic MatchMethod = "semantic"
)

// StructureType classifies a discovered organizational concept
type StructureType string

const (
	StructurePillar StructureType = "pillar"
	StructureTeam   StructureType = "team"
	StructureRole   StructureType = "role"
	StructureOther  StructureType = "other"
)

// EntityMetadata carries the structural facts an observation may include.
// Any subset of fields may be set.
type EntityMetadata struct {
	Pillar   string `json:"pillar,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// HasStructure reports whether any structural fact is present
func (m EntityMetadata) HasStructure() bool {
	return m.Pillar != "" || m.TeamName != "" || m.Role != ""
}

// ObservedEntity is one entity mention produced by the extraction side
type ObservedEntity struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Metadata   EntityMetadata `json:"metadata,omitempty"`
}

// Validate rejects malformed entity observations before resolution
func (o ObservedEntity) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return apperrors.NewMalformedObservation("entity", "name is required")
	}
	if strings.TrimSpace(o.Type) == "" {
		return apperrors.NewMalformedObservation("entity", "type is required")
	}
	return nil
}

// ObservedRelationship is one relationship mention produced by the extraction
// side. Subject and object are entity names, not node ids.
type ObservedRelationship struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

// Validate rejects malformed relationship observations before aggregation
func (o ObservedRelationship) Validate() error {
	if strings.TrimSpace(o.Subject) == "" {
		return apperrors.NewMalformedObservation("relationship", "subject is required")
	}
	if strings.TrimSpace(o.Predicate) == "" {
		return apperrors.NewMalformedObservation("relationship", "predicate is required")
	}
	if strings.TrimSpace(o.Object) == "" {
		return apperrors.NewMalformedObservation("relationship", "object is required")
	}
	return nil
}

// NodeMetadata accumulates every distinct structural fact ever observed for a
// node. Values are only appended, never overwritten or removed.
type NodeMetadata struct {
	Pillars   []string `json:"pillars,omitempty"`
	TeamNames []string `json:"team_names,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Accumulate folds one observation's structural facts into the node metadata
func (m *NodeMetadata) Accumulate(obs EntityMetadata) {
	if obs.Pillar != "" {
		m.Pillars = appendDistinct(m.Pillars, obs.Pillar)
	}
	if obs.TeamName != "" {
		m.TeamNames = appendDistinct(m.TeamNames, obs.TeamName)
	}
	if obs.Role != "" {
		m.Roles = appendDistinct(m.Roles, obs.Role)
	}
}

// KnowledgeNode is the canonical representation of one real-world entity
type KnowledgeNode struct {
	ID                int64        `json:"id"`
	CanonicalName     string       `json:"canonical_name"`
	EntityType        EntityType   `json:"entity_type"`
	Aliases           []string     `json:"aliases"` // lowercase name variants
	MentionCount      int          `json:"mention_count"`
	AverageConfidence float64      `json:"average_confidence"`
	FirstSeen         time.Time    `json:"first_seen"`
	LastSeen          time.Time    `json:"last_seen"`
	Metadata          NodeMetadata `json:"metadata"`

	// NameEmbedding is set when an embedder is wired; used for semantic
	// candidate scoring. Absence degrades matching to string similarity.
	NameEmbedding []float32 `json:"-"`
}

// HasAlias reports whether the node's alias set contains the lowercased name
func (n *KnowledgeNode) HasAlias(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, a := range n.Aliases {
		if a == lower {
			return true
		}
	}
	return false
}

// AddAlias appends the lowercased name to the alias set if absent
func (n *KnowledgeNode) AddAlias(name string) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return
	}
	n.Aliases = appendDistinct(n.Aliases, lower)
}

// KnowledgeEdge is an aggregated, directed, typed relationship between two
// nodes, uniquely identified by (SubjectID, Predicate, ObjectID)
type KnowledgeEdge struct {
	ID                int64     `json:"id"`
	SubjectID         int64     `json:"subject_id"`
	Predicate         string    `json:"predicate"`
	ObjectID          int64     `json:"object_id"`
	Strength          float64   `json:"strength"`
	MentionCount      int       `json:"mention_count"`
	ContextCount      int       `json:"context_count"`
	AverageConfidence float64   `json:"average_confidence"`
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
}

// EntityKnowledgeLink maps one raw observed entity to the node it merged
// into. Append-only traceability; never mutated after creation.
type EntityKnowledgeLink struct {
	ID         string      `json:"id"`
	EntityID   string      `json:"entity_id"`
	NodeID     int64       `json:"node_id"`
	Similarity float64     `json:"similarity"`
	Method     MatchMethod `json:"method"`
	CreatedAt  time.Time   `json:"created_at"`
}

// StructureElement is one discovered organizational concept. The parent
// relation forms a tree: at most one parent, ParentID 0 meaning none.
type StructureElement struct {
	ID           int64         `json:"id"`
	Type         StructureType `json:"type"`
	Name         string        `json:"name"`
	ParentID     int64         `json:"parent_id,omitempty"`
	MentionCount int           `json:"mention_count"`
	ContextCount int           `json:"context_count"`
	FirstSeen    time.Time     `json:"first_seen"`
	LastSeen     time.Time     `json:"last_seen"`
	NodeIDs      []int64       `json:"node_ids,omitempty"`
}

// HasNode reports whether the element is already associated with the node
func (s *StructureElement) HasNode(nodeID int64) bool {
	for _, id := range s.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

func appendDistinct(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
