package knowledge

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Temporal Decay
// ============================================================================

// DecayedStrength applies the exponential half-life model: after one
// half-life without new evidence the strength halves. Zero or negative
// elapsed time leaves the strength untouched.
func DecayedStrength(strength float64, lastSeen, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return strength
	}
	daysElapsed := now.Sub(lastSeen).Hours() / 24
	if daysElapsed <= 0 {
		return strength
	}
	decayed := strength * math.Pow(0.5, daysElapsed/halfLifeDays)
	return math.Max(decayed, 0.0)
}

// DecayStats reports one decay pass. The pass is best-effort: an individual
// edge's update failure is counted, not fatal.
type DecayStats struct {
	EdgesProcessed  int     `json:"edges_processed"`
	EdgesUpdated    int     `json:"edges_updated"`
	EdgesFailed     int     `json:"edges_failed"`
	EdgesBelowFloor int     `json:"edges_below_floor"`
	TotalDecay      float64 `json:"total_decay"`
}

// PruneStats reports one prune run
type PruneStats struct {
	Decay       *DecayStats `json:"decay"`
	EdgesPruned int         `json:"edges_pruned"`
	EdgesFailed int         `json:"edges_failed"`
}

// StaleRelationship annotates an edge with both its stored strength and the
// strength a decay pass would assign right now
type StaleRelationship struct {
	Edge              *KnowledgeEdge `json:"edge"`
	StoredStrength    float64        `json:"stored_strength"`
	DecayedStrength   float64        `json:"decayed_strength"`
	DaysSinceLastSeen float64        `json:"days_since_last_seen"`
}

// ApplyDecayToAllEdges recomputes every edge's strength from elapsed time and
// persists reductions that exceed the configured epsilon. Safe to run
// repeatedly and concurrently with aggregation: only the strength field is
// ever written, and aggregation recomputes strength from mention statistics
// against a lastSeen it refreshes itself.
func (e *GraphEngine) ApplyDecayToAllEdges(ctx context.Context) (*DecayStats, error) {
	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("edge listing failed: %w", err)
	}

	now := e.now()
	stats := &DecayStats{}
	var statsMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.DecayConcurrency)

	for _, edge := range edges {
		edge := edge
		group.Go(func() error {
			decayed := DecayedStrength(edge.Strength, edge.LastSeen, now, e.cfg.HalfLifeDays)
			reduction := edge.Strength - decayed

			updated := false
			failed := false
			if reduction > edge.Strength*e.cfg.DecayEpsilon {
				// Strength-only write: a concurrent aggregation may have
				// refreshed the rest of the record since the listing
				if err := e.store.UpdateEdgeStrength(groupCtx, edge.ID, decayed); err != nil {
					// Best-effort: count the failure and keep going
					e.logger.Warn("edge decay update failed",
						zap.Int64("edge_id", edge.ID),
						zap.Error(err),
					)
					failed = true
				} else {
					updated = true
				}
			}

			statsMu.Lock()
			stats.EdgesProcessed++
			if failed {
				stats.EdgesFailed++
			}
			if updated {
				stats.EdgesUpdated++
				stats.TotalDecay += reduction
			}
			if decayed < e.cfg.StaleStrengthFloor {
				stats.EdgesBelowFloor++
			}
			statsMu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return stats, err
	}

	e.logger.Info("decay pass completed",
		zap.Int("edges_processed", stats.EdgesProcessed),
		zap.Int("edges_updated", stats.EdgesUpdated),
		zap.Int("edges_failed", stats.EdgesFailed),
		zap.Int("edges_below_floor", stats.EdgesBelowFloor),
		zap.Float64("total_decay", stats.TotalDecay),
	)
	return stats, nil
}

// StaleRelationships returns, without mutating anything, every edge whose
// stored strength sits below the threshold or whose last observation is older
// than daysInactive
func (e *GraphEngine) StaleRelationships(ctx context.Context, threshold float64, daysInactive int) ([]StaleRelationship, error) {
	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("edge listing failed: %w", err)
	}

	now := e.now()
	var stale []StaleRelationship
	for _, edge := range edges {
		daysSince := now.Sub(edge.LastSeen).Hours() / 24
		if edge.Strength < threshold || daysSince > float64(daysInactive) {
			stale = append(stale, StaleRelationship{
				Edge:              edge,
				StoredStrength:    edge.Strength,
				DecayedStrength:   DecayedStrength(edge.Strength, edge.LastSeen, now, e.cfg.HalfLifeDays),
				DaysSinceLastSeen: daysSince,
			})
		}
	}
	return stale, nil
}

// PruneStaleRelationships runs a full decay pass, then zeroes the strength of
// every edge still below the threshold. Pruning is strength-zeroing, not
// deletion: mention history stays intact.
func (e *GraphEngine) PruneStaleRelationships(ctx context.Context, threshold float64) (*PruneStats, error) {
	decayStats, err := e.ApplyDecayToAllEdges(ctx)
	if err != nil {
		return &PruneStats{Decay: decayStats}, err
	}

	edges, err := e.store.ListEdges(ctx)
	if err != nil {
		return &PruneStats{Decay: decayStats}, fmt.Errorf("edge listing failed: %w", err)
	}

	stats := &PruneStats{Decay: decayStats}
	for _, edge := range edges {
		if edge.Strength <= 0 || edge.Strength >= threshold {
			continue
		}
		if err := e.store.UpdateEdgeStrength(ctx, edge.ID, 0); err != nil {
			e.logger.Warn("edge prune update failed",
				zap.Int64("edge_id", edge.ID),
				zap.Error(err),
			)
			stats.EdgesFailed++
			continue
		}
		stats.EdgesPruned++
	}

	e.logger.Info("prune run completed",
		zap.Float64("threshold", threshold),
		zap.Int("edges_pruned", stats.EdgesPruned),
		zap.Int("edges_failed", stats.EdgesFailed),
	)
	return stats, nil
}
