package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ============================================================================
// Structure Learning
// ============================================================================

// maxParentChainDepth bounds parent-chain walks; discovered hierarchies are
// shallow (pillar > team > role) and anything deeper means corrupt data
const maxParentChainDepth = 16

// LearnStructure folds one observation's structural metadata into the
// discovered hierarchy: pillar, then team under that pillar, then role under
// that team. Each level is optional; a team observed without its pillar in
// the same call stays parentless until a later observation names both.
func (e *GraphEngine) LearnStructure(ctx context.Context, nodeID int64, meta EntityMetadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.learnStructure(ctx, nodeID, meta)
}

func (e *GraphEngine) learnStructure(ctx context.Context, nodeID int64, meta EntityMetadata) error {
	var pillarID, teamID int64

	if meta.Pillar != "" {
		pillar, err := e.upsertStructure(ctx, StructurePillar, meta.Pillar, 0, nodeID)
		if err != nil {
			return err
		}
		pillarID = pillar.ID
	}

	if meta.TeamName != "" {
		team, err := e.upsertStructure(ctx, StructureTeam, meta.TeamName, pillarID, nodeID)
		if err != nil {
			return err
		}
		teamID = team.ID
	}

	if meta.Role != "" {
		if _, err := e.upsertStructure(ctx, StructureRole, meta.Role, teamID, nodeID); err != nil {
			return err
		}
	}

	return nil
}

// upsertStructure creates or refreshes one structure element. An existing
// element keeps its first-seen parent; a new element takes the proposed
// parent unless that would close a cycle, in which case it is created
// parentless rather than failing the call.
func (e *GraphEngine) upsertStructure(ctx context.Context, structureType StructureType, name string, parentID, nodeID int64) (*StructureElement, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)
	now := e.now()

	existing, err := e.store.FindStructure(ctx, structureType, nameLower)
	if err != nil {
		return nil, fmt.Errorf("structure lookup failed: %w", err)
	}

	if existing != nil {
		existing.MentionCount++
		existing.ContextCount++
		existing.LastSeen = now
		if nodeID != 0 && !existing.HasNode(nodeID) {
			existing.NodeIDs = append(existing.NodeIDs, nodeID)
		}
		// First-seen parent wins: no reassignment on re-observation
		if err := e.store.UpdateStructure(ctx, existing); err != nil {
			return nil, fmt.Errorf("structure update failed: %w", err)
		}
		return existing, nil
	}

	if parentID != 0 {
		cyclic, err := e.parentChainContains(ctx, parentID, structureType, nameLower)
		if err != nil {
			return nil, err
		}
		if cyclic {
			e.logger.Warn("structure parent would close a cycle, creating parentless",
				zap.String("type", string(structureType)),
				zap.String("name", name),
				zap.Int64("parent_id", parentID),
			)
			parentID = 0
		}
	}

	element := &StructureElement{
		Type:         structureType,
		Name:         name,
		ParentID:     parentID,
		MentionCount: 1,
		ContextCount: 1,
		FirstSeen:    now,
		LastSeen:     now,
	}
	if nodeID != 0 {
		element.NodeIDs = []int64{nodeID}
	}

	created, err := e.store.CreateStructure(ctx, element)
	if err != nil {
		return nil, fmt.Errorf("structure creation failed: %w", err)
	}
	return created, nil
}

// parentChainContains walks up from the proposed parent looking for an
// element with the given type and name. A hit means parenting under it would
// close a cycle.
func (e *GraphEngine) parentChainContains(ctx context.Context, startID int64, structureType StructureType, nameLower string) (bool, error) {
	elements, err := e.store.ListStructures(ctx)
	if err != nil {
		return false, fmt.Errorf("structure listing failed: %w", err)
	}
	byID := make(map[int64]*StructureElement, len(elements))
	for _, el := range elements {
		byID[el.ID] = el
	}

	current := startID
	for depth := 0; depth < maxParentChainDepth && current != 0; depth++ {
		el, ok := byID[current]
		if !ok {
			return false, nil
		}
		if el.Type == structureType && strings.ToLower(el.Name) == nameLower {
			return true, nil
		}
		current = el.ParentID
	}
	return false, nil
}
