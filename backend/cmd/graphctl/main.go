package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"orgbrain/backend/internal/knowledge"
	neo4jstore "orgbrain/backend/internal/store/neo4j"
	"orgbrain/backend/pkg/config"
	"orgbrain/backend/pkg/logger"
)

const usage = `Usage: graphctl <command> [flags]

Commands:
  entity [-type TYPE] <name>   full knowledge about a named entity
  structures                   the discovered organizational hierarchy
  stats                        aggregate graph statistics
  stale [-threshold F] [-days N]  relationships that have gone stale
`

// graphctl is a read-only window into the graph for operators and
// collaborating services during development. It only touches the query layer.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()
	log := logger.Get()

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

	engine := knowledge.NewGraphEngine(store, nil, knowledge.Config{
		FuzzyMatchThreshold: cfg.FuzzyMatchThreshold,
		MergeThreshold:      cfg.MergeThreshold,
		HalfLifeDays:        cfg.HalfLifeDays,
		StaleStrengthFloor:  cfg.StaleStrengthFloor,
	})

	var result interface{}
	switch os.Args[1] {
	case "entity":
		flags := flag.NewFlagSet("entity", flag.ExitOnError)
		entityType := flags.String("type", "", "narrow the lookup to one entity type")
		_ = flags.Parse(os.Args[2:])
		if flags.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "entity requires a name argument")
			os.Exit(2)
		}
		result, err = engine.GetEntityKnowledge(ctx, flags.Arg(0), *entityType)

	case "structures":
		result, err = engine.GetDiscoveredStructures(ctx)

	case "stats":
		result, err = engine.ComputeGraphStats(ctx)

	case "stale":
		flags := flag.NewFlagSet("stale", flag.ExitOnError)
		threshold := flags.Float64("threshold", cfg.StaleStrengthFloor, "strength threshold")
		days := flags.Int("days", 90, "days of inactivity")
		_ = flags.Parse(os.Args[2:])
		result, err = engine.StaleRelationships(ctx, *threshold, *days)

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Query failed", zap.String("command", os.Args[1]), zap.Error(err))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatal("Failed to encode result", zap.Error(err))
	}
}
