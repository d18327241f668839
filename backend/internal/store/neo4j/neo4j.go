// Package neo4j implements the knowledge Store on a Neo4j database.
// Canonical entities are (:Entity) nodes, aggregated relationships are [:REL]
// relationships keyed by a triple property, traceability links are
// (:EntityLink) nodes and discovered structure is (:Structure) nodes.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "orgbrain/backend/pkg/errors"
	"orgbrain/backend/pkg/logger"
)

// Store handles all Neo4j database operations for the knowledge graph
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewStore creates a store over an existing driver
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Get(),
	}
}

// Connect creates a driver, verifies connectivity and returns a store
func Connect(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	return NewStore(driver), nil
}

// Close closes the underlying driver connection
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// EnsureSchema creates the uniqueness constraints the engine's invariants
// rely on: entity ids, (entityType, canonicalName), structure (type, name)
// and the edge triple key.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`,
		`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (n:Entity) REQUIRE (n.entity_type, n.canonical_name_lower) IS UNIQUE`,
		`CREATE CONSTRAINT structure_name_unique IF NOT EXISTS FOR (n:Structure) REQUIRE (n.type, n.name_lower) IS UNIQUE`,
		`CREATE CONSTRAINT rel_triple_unique IF NOT EXISTS FOR ()-[r:REL]-() REQUIRE r.triple_key IS UNIQUE`,
	}
	for _, constraint := range constraints {
		if _, err := session.Run(ctx, constraint, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}

	s.logger.Info("graph schema constraints ensured")
	return nil
}

// nextID allocates the next value of a named sequence
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (seq:Sequence {name: $name})
		SET seq.value = coalesce(seq.value, 0) + 1
		RETURN seq.value as value
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"name": name})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s id: %w", name, err)
	}
	value, _ := record.Get("value")
	id, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected %s sequence value %T", name, value)
	}
	return id, nil
}
