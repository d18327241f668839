package knowledge

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "orgbrain/backend/pkg/errors"
	"orgbrain/backend/pkg/logger"
)

// Config carries the engine's tunables. Zero values are replaced with the
// defaults from DefaultConfig.
type Config struct {
	FuzzyMatchThreshold float64 // minimum similarity for a fuzzy candidate
	MergeThreshold      float64 // minimum combined score for a confident merge
	HalfLifeDays        float64 // edge strength half-life
	StaleStrengthFloor  float64 // strength below this marks an edge stale
	DecayEpsilon        float64 // minimum relative reduction worth persisting
	DecayConcurrency    int     // parallel edge updates during a decay pass

	// Clock overrides time.Now, used by tests and replay tooling
	Clock func() time.Time
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		FuzzyMatchThreshold: 0.60,
		MergeThreshold:      0.75,
		HalfLifeDays:        30,
		StaleStrengthFloor:  0.1,
		DecayEpsilon:        0.01,
		DecayConcurrency:    8,
	}
}

// GraphEngine owns one logical knowledge graph: its node/edge/structure
// store, configuration and optional embedding collaborator. Construct one
// per graph or tenant and pass it explicitly; there is no global instance.
//
// Observation batches are serialized through an internal mutex so that later
// observations in a batch resolve against nodes created by earlier ones.
// Read-only queries and the decay pass intentionally bypass that mutex.
type GraphEngine struct {
	store    Store
	embedder Embedder // nil disables semantic similarity
	cfg      Config
	logger   *zap.Logger

	mu sync.Mutex // serializes resolve/aggregate writers
}

// NewGraphEngine creates an engine over the given store. The embedder may be
// nil, in which case matching relies on string similarity alone.
func NewGraphEngine(store Store, embedder Embedder, cfg Config) *GraphEngine {
	defaults := DefaultConfig()
	if cfg.FuzzyMatchThreshold <= 0 {
		cfg.FuzzyMatchThreshold = defaults.FuzzyMatchThreshold
	}
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = defaults.MergeThreshold
	}
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = defaults.HalfLifeDays
	}
	if cfg.StaleStrengthFloor <= 0 {
		cfg.StaleStrengthFloor = defaults.StaleStrengthFloor
	}
	if cfg.DecayEpsilon <= 0 {
		cfg.DecayEpsilon = defaults.DecayEpsilon
	}
	if cfg.DecayConcurrency <= 0 {
		cfg.DecayConcurrency = defaults.DecayConcurrency
	}

	return &GraphEngine{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger.Get(),
	}
}

func (e *GraphEngine) now() time.Time {
	if e.cfg.Clock != nil {
		return e.cfg.Clock()
	}
	return time.Now().UTC()
}

// ObservationBatch is one extraction result: the entities and relationships
// pulled out of a single input context (document, email, message)
type ObservationBatch struct {
	ContextID     string                 `json:"context_id,omitempty"`
	Entities      []ObservedEntity       `json:"entities"`
	Relationships []ObservedRelationship `json:"relationships"`
}

// BatchResult summarizes one processed batch. Validation failures are
// per-item and do not abort the batch; persistence failures do.
type BatchResult struct {
	EntitiesResolved   int      `json:"entities_resolved"`
	NodesCreated       int      `json:"nodes_created"`
	EdgesAggregated    int      `json:"edges_aggregated"`
	ValidationFailures []string `json:"validation_failures,omitempty"`
}

// ProcessBatch resolves every entity, learns structure for those that carry
// structural metadata, then resolves and aggregates every relationship.
// Entities are processed in order, so a later observation can merge into a
// node created earlier in the same batch.
func (e *GraphEngine) ProcessBatch(ctx context.Context, batch ObservationBatch) (*BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &BatchResult{}
	resolved := make(map[string]*KnowledgeNode, len(batch.Entities))

	for _, obs := range batch.Entities {
		node, _, err := e.resolve(ctx, obs)
		if err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
				result.ValidationFailures = append(result.ValidationFailures, err.Error())
				continue
			}
			return result, err
		}
		result.EntitiesResolved++
		if node.MentionCount == 1 {
			result.NodesCreated++
		}
		resolved[strings.ToLower(strings.TrimSpace(obs.Name))] = node

		if obs.Metadata.HasStructure() {
			// Structure learning degrades gracefully rather than blocking
			// entity resolution
			if err := e.learnStructure(ctx, node.ID, obs.Metadata); err != nil {
				e.logger.Warn("structure learning failed",
					zap.Int64("node_id", node.ID),
					zap.Error(err),
				)
			}
		}
	}

	for _, rel := range batch.Relationships {
		if err := rel.Validate(); err != nil {
			result.ValidationFailures = append(result.ValidationFailures, err.Error())
			continue
		}

		subject, err := e.resolveName(ctx, resolved, rel.Subject, rel.Confidence)
		if err != nil {
			return result, err
		}
		object, err := e.resolveName(ctx, resolved, rel.Object, rel.Confidence)
		if err != nil {
			return result, err
		}

		if _, err := e.aggregate(ctx, subject, rel.Predicate, object, rel.Confidence); err != nil {
			return result, err
		}
		result.EdgesAggregated++
	}

	e.logger.Debug("observation batch processed",
		zap.String("context_id", batch.ContextID),
		zap.Int("entities_resolved", result.EntitiesResolved),
		zap.Int("nodes_created", result.NodesCreated),
		zap.Int("edges_aggregated", result.EdgesAggregated),
		zap.Int("validation_failures", len(result.ValidationFailures)),
	)
	return result, nil
}

// resolveName maps a relationship endpoint name to a node: first the nodes
// resolved earlier in this batch, then any existing node whose canonical name
// or alias matches, and only then a fresh resolution with an open entity type.
func (e *GraphEngine) resolveName(ctx context.Context, resolved map[string]*KnowledgeNode, name string, confidence float64) (*KnowledgeNode, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if node, ok := resolved[lower]; ok {
		return node, nil
	}

	if node, err := e.lookupByName(ctx, lower, ""); err != nil {
		return nil, err
	} else if node != nil {
		resolved[lower] = node
		return node, nil
	}

	node, _, err := e.resolve(ctx, ObservedEntity{
		Name:       strings.TrimSpace(name),
		Type:       string(EntityOther),
		Confidence: confidence,
	})
	if err != nil {
		return nil, err
	}
	resolved[lower] = node
	return node, nil
}
