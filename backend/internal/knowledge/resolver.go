package knowledge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================================
// Entity Resolution
// ============================================================================

// candidate is one existing node scored against an observation
type candidate struct {
	node       *KnowledgeNode
	similarity float64
	score      float64 // similarity + mention and recency boosts, capped at 1.0
	fromAlias  bool
	semantic   bool // semantic signal matched or beat the string signal
}

// Resolve decides whether the observed entity refers to an already-known
// canonical node or a new one, applies the merge or creation, and records a
// traceability link. Ambiguity is never an error: low-scoring candidates are
// merged with a low-confidence method rather than held back, because the
// graph favors connecting over fragmenting.
func (e *GraphEngine) Resolve(ctx context.Context, obs ObservedEntity) (*KnowledgeNode, *EntityKnowledgeLink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(ctx, obs)
}

func (e *GraphEngine) resolve(ctx context.Context, obs ObservedEntity) (*KnowledgeNode, *EntityKnowledgeLink, error) {
	if err := obs.Validate(); err != nil {
		return nil, nil, err
	}

	name := strings.TrimSpace(obs.Name)
	nameLower := strings.ToLower(name)
	entityType := NormalizeEntityType(obs.Type)
	now := e.now()

	// Exact match short-circuits: same type, same canonical name
	exact, err := e.store.FindNodeByCanonicalName(ctx, entityType, nameLower)
	if err != nil {
		return nil, nil, fmt.Errorf("exact lookup failed: %w", err)
	}
	if exact != nil {
		if err := e.applyMerge(ctx, exact, obs, now); err != nil {
			return nil, nil, err
		}
		link := e.recordLink(ctx, obs, exact.ID, 1.0, MatchExact, now)
		return exact, link, nil
	}

	obsEmbedding := e.embedName(ctx, name)

	candidates, err := e.gatherCandidates(ctx, entityType, name, nameLower, obsEmbedding)
	if err != nil {
		return nil, nil, err
	}
	best := e.rankCandidates(candidates, now)

	switch {
	case best != nil && best.score >= e.cfg.MergeThreshold:
		method := MatchFuzzy
		if best.fromAlias {
			method = MatchAlias
		} else if best.semantic {
			method = MatchSemantic
		}
		if err := e.applyMerge(ctx, best.node, obs, now); err != nil {
			return nil, nil, err
		}
		// The link records the raw similarity; the mention/recency boosts
		// only rank candidates
		link := e.recordLink(ctx, obs, best.node.ID, best.similarity, method, now)
		return best.node, link, nil

	case best != nil && best.score >= e.cfg.FuzzyMatchThreshold:
		// Tracked but not held back
		if err := e.applyMerge(ctx, best.node, obs, now); err != nil {
			return nil, nil, err
		}
		link := e.recordLink(ctx, obs, best.node.ID, best.similarity, MatchFuzzyLow, now)
		e.logger.Debug("low-confidence merge",
			zap.String("name", name),
			zap.String("canonical", best.node.CanonicalName),
			zap.Float64("score", best.score),
		)
		return best.node, link, nil

	default:
		node := &KnowledgeNode{
			CanonicalName:     name,
			EntityType:        entityType,
			Aliases:           []string{nameLower},
			MentionCount:      1,
			AverageConfidence: obs.Confidence,
			FirstSeen:         now,
			LastSeen:          now,
			NameEmbedding:     obsEmbedding,
		}
		node.Metadata.Accumulate(obs.Metadata)

		created, err := e.store.CreateNode(ctx, node)
		if err != nil {
			return nil, nil, fmt.Errorf("node creation failed: %w", err)
		}
		// A brand-new node is trivially its own exact match
		link := e.recordLink(ctx, obs, created.ID, 1.0, MatchExact, now)
		return created, link, nil
	}
}

// gatherCandidates collects merge candidates: alias hits of the same type
// when any exist, otherwise a fuzzy scan over all nodes of the type keeping
// those at or above the fuzzy threshold.
func (e *GraphEngine) gatherCandidates(ctx context.Context, entityType EntityType, name, nameLower string, obsEmbedding []float32) ([]candidate, error) {
	aliasNodes, err := e.store.FindNodesByAlias(ctx, entityType, nameLower)
	if err != nil {
		return nil, fmt.Errorf("alias lookup failed: %w", err)
	}
	if len(aliasNodes) > 0 {
		candidates := make([]candidate, 0, len(aliasNodes))
		for _, node := range aliasNodes {
			sim, semantic := e.candidateSimilarity(name, node, obsEmbedding)
			candidates = append(candidates, candidate{node: node, similarity: sim, fromAlias: true, semantic: semantic})
		}
		return candidates, nil
	}

	nodes, err := e.store.NodesByType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("fuzzy scan failed: %w", err)
	}
	var candidates []candidate
	for _, node := range nodes {
		sim, semantic := e.candidateSimilarity(name, node, obsEmbedding)
		if sim >= e.cfg.FuzzyMatchThreshold {
			candidates = append(candidates, candidate{node: node, similarity: sim, semantic: semantic})
		}
	}
	return candidates, nil
}

// candidateSimilarity scores the observed name against a node's canonical
// name, blending in the semantic signal when both embeddings exist
func (e *GraphEngine) candidateSimilarity(name string, node *KnowledgeNode, obsEmbedding []float32) (float64, bool) {
	stringSim := StringSimilarity(name, node.CanonicalName)
	if len(obsEmbedding) > 0 && len(node.NameEmbedding) > 0 {
		semanticSim := CosineSimilarity(obsEmbedding, node.NameEmbedding)
		return CombinedSimilarity(stringSim, &semanticSim), semanticSim >= stringSim
	}
	return CombinedSimilarity(stringSim, nil), false
}

// rankCandidates applies mention and recency boosts and returns the winner.
// Well-evidenced, recently-seen nodes attract merges slightly more than
// dormant ones.
func (e *GraphEngine) rankCandidates(candidates []candidate, now time.Time) *candidate {
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		mentionBoost := math.Min(float64(c.node.MentionCount)/100.0, 0.1)
		daysSinceSeen := now.Sub(c.node.LastSeen).Hours() / 24
		recencyBoost := math.Max(0, 0.1-daysSinceSeen/100.0)
		c.score = math.Min(c.similarity+mentionBoost+recencyBoost, 1.0)
		if best == nil || c.score > best.score {
			best = c
		}
	}
	return best
}

// applyMerge folds one observation into an existing node as a single atomic
// record update: mention count, recency, alias accumulation, canonical-name
// promotion when the observation is more confident than the running average,
// running confidence mean, and structural metadata accumulation.
func (e *GraphEngine) applyMerge(ctx context.Context, node *KnowledgeNode, obs ObservedEntity, now time.Time) error {
	oldCount := node.MentionCount

	node.MentionCount++
	node.LastSeen = now
	node.AddAlias(obs.Name)

	if obs.Confidence > node.AverageConfidence {
		node.AddAlias(node.CanonicalName)
		node.CanonicalName = strings.TrimSpace(obs.Name)
		node.AddAlias(node.CanonicalName)
	}

	node.AverageConfidence = (node.AverageConfidence*float64(oldCount) + obs.Confidence) / float64(oldCount+1)
	node.Metadata.Accumulate(obs.Metadata)

	if err := e.store.UpdateNode(ctx, node); err != nil {
		return fmt.Errorf("node merge failed: %w", err)
	}
	return nil
}

// recordLink writes the traceability link for a resolution. The write is
// advisory: losing it degrades traceability, not graph correctness, so a
// failure is logged and the resolution still succeeds.
func (e *GraphEngine) recordLink(ctx context.Context, obs ObservedEntity, nodeID int64, similarity float64, method MatchMethod, now time.Time) *EntityKnowledgeLink {
	entityID := obs.ID
	if entityID == "" {
		entityID = uuid.NewString()
	}
	link := &EntityKnowledgeLink{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		NodeID:     nodeID,
		Similarity: similarity,
		Method:     method,
		CreatedAt:  now,
	}
	if err := e.store.CreateLink(ctx, link); err != nil {
		e.logger.Warn("entity link write failed, traceability degraded",
			zap.Int64("node_id", nodeID),
			zap.String("method", string(method)),
			zap.Error(err),
		)
	}
	return link
}

// embedName fetches the observation's name embedding when an embedder is
// wired. Failures degrade to string-only similarity.
func (e *GraphEngine) embedName(ctx context.Context, name string) []float32 {
	if e.embedder == nil {
		return nil
	}
	embedding, err := e.embedder.Embed(ctx, name)
	if err != nil {
		e.logger.Warn("name embedding failed, falling back to string similarity",
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}
	return embedding
}
