package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"orgbrain/backend/internal/knowledge"
	neo4jstore "orgbrain/backend/internal/store/neo4j"
	"orgbrain/backend/pkg/config"
	"orgbrain/backend/pkg/logger"
)

// The maintenance runner applies temporal decay on a schedule. The engine
// never self-schedules; cadence is decided here.
func main() {
	once := flag.Bool("once", false, "run one maintenance pass and exit")
	prune := flag.Bool("prune", false, "also zero the strength of edges below the stale floor")
	flag.Parse()

	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph maintenance...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	store, err := neo4jstore.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		log.Fatal("Failed to connect to Neo4j", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to ensure graph schema", zap.Error(err))
	}

	engine := knowledge.NewGraphEngine(store, nil, knowledge.Config{
		FuzzyMatchThreshold: cfg.FuzzyMatchThreshold,
		MergeThreshold:      cfg.MergeThreshold,
		HalfLifeDays:        cfg.HalfLifeDays,
		StaleStrengthFloor:  cfg.StaleStrengthFloor,
		DecayConcurrency:    cfg.DecayConcurrency,
	})

	runPass := func() {
		if *prune {
			stats, err := engine.PruneStaleRelationships(ctx, cfg.StaleStrengthFloor)
			if err != nil {
				log.Error("Prune run failed", zap.Error(err))
				return
			}
			log.Info("Prune run finished",
				zap.Int("edges_processed", stats.Decay.EdgesProcessed),
				zap.Int("edges_pruned", stats.EdgesPruned),
				zap.Int("edges_failed", stats.EdgesFailed),
			)
			return
		}

		stats, err := engine.ApplyDecayToAllEdges(ctx)
		if err != nil {
			log.Error("Decay pass failed", zap.Error(err))
			return
		}
		log.Info("Decay pass finished",
			zap.Int("edges_processed", stats.EdgesProcessed),
			zap.Int("edges_updated", stats.EdgesUpdated),
			zap.Int("edges_below_floor", stats.EdgesBelowFloor),
		)
	}

	if *once {
		runPass()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.MaintenanceCron, runPass); err != nil {
		log.Fatal("Invalid maintenance cron spec",
			zap.String("spec", cfg.MaintenanceCron),
			zap.Error(err),
		)
	}
	scheduler.Start()
	log.Info("Maintenance scheduled", zap.String("cron", cfg.MaintenanceCron))

	// Wait for interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down maintenance...")
	<-scheduler.Stop().Done()
}
