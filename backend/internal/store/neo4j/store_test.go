package neo4j

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"orgbrain/backend/internal/knowledge"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.

func createTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}

	ctx := context.Background()
	store, err := Connect(ctx, uri, user, password)
	if err != nil {
		t.Skipf("Neo4j not available: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return store
}

func cleanupNode(store *Store, id int64) {
	ctx := context.Background()
	session := store.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, "MATCH (n:Entity {id: $id}) DETACH DELETE n", map[string]interface{}{"id": id})
}

func cleanupStructure(store *Store, id int64) {
	ctx := context.Background()
	session := store.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	_, _ = session.Run(ctx, "MATCH (n:Structure {id: $id}) DETACH DELETE n", map[string]interface{}{"id": id})
}

func TestStore_NodeRoundtrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	name := "test-entity-" + time.Now().Format("20060102150405.000")
	created, err := store.CreateNode(ctx, &knowledge.KnowledgeNode{
		CanonicalName:     name,
		EntityType:        knowledge.EntityProject,
		Aliases:           []string{name},
		MentionCount:      1,
		AverageConfidence: 0.9,
		FirstSeen:         now,
		LastSeen:          now,
		NameEmbedding:     []float32{0.25, 0.5},
	})
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	defer cleanupNode(store, created.ID)

	if created.ID == 0 {
		t.Fatal("expected a non-zero node id")
	}

	fetched, err := store.GetNode(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("created node not found")
	}
	if fetched.CanonicalName != name {
		t.Errorf("expected canonical name %q, got %q", name, fetched.CanonicalName)
	}
	if fetched.EntityType != knowledge.EntityProject {
		t.Errorf("expected PROJECT, got %s", fetched.EntityType)
	}
	if len(fetched.NameEmbedding) != 2 {
		t.Errorf("expected 2 embedding dimensions, got %d", len(fetched.NameEmbedding))
	}
	if !fetched.LastSeen.Equal(now) {
		t.Errorf("expected lastSeen %v, got %v", now, fetched.LastSeen)
	}

	fetched.MentionCount = 3
	fetched.Aliases = append(fetched.Aliases, "another alias")
	if err := store.UpdateNode(ctx, fetched); err != nil {
		t.Fatalf("UpdateNode failed: %v", err)
	}

	again, err := store.GetNode(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetNode after update failed: %v", err)
	}
	if again.MentionCount != 3 {
		t.Errorf("expected mention count 3, got %d", again.MentionCount)
	}
	if len(again.Aliases) != 2 {
		t.Errorf("expected 2 aliases, got %d", len(again.Aliases))
	}

	byName, err := store.FindNodeByCanonicalName(ctx, knowledge.EntityProject, name)
	if err != nil {
		t.Fatalf("FindNodeByCanonicalName failed: %v", err)
	}
	if byName == nil || byName.ID != created.ID {
		t.Error("lookup by canonical name did not return the created node")
	}

	byAlias, err := store.FindNodesByAlias(ctx, knowledge.EntityProject, "another alias")
	if err != nil {
		t.Fatalf("FindNodesByAlias failed: %v", err)
	}
	if len(byAlias) != 1 || byAlias[0].ID != created.ID {
		t.Error("lookup by alias did not return the created node")
	}
}

func TestStore_GetNodeMissingIsNil(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	node, err := store.GetNode(ctx, -1)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node != nil {
		t.Error("expected nil for a missing node")
	}
}

func TestStore_EdgeRoundtrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	suffix := time.Now().Format("20060102150405.000")
	subject, err := store.CreateNode(ctx, &knowledge.KnowledgeNode{
		CanonicalName: "test-subject-" + suffix,
		EntityType:    knowledge.EntityPerson,
		MentionCount:  1,
		FirstSeen:     now,
		LastSeen:      now,
	})
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	defer cleanupNode(store, subject.ID)

	object, err := store.CreateNode(ctx, &knowledge.KnowledgeNode{
		CanonicalName: "test-object-" + suffix,
		EntityType:    knowledge.EntityProject,
		MentionCount:  1,
		FirstSeen:     now,
		LastSeen:      now,
	})
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	defer cleanupNode(store, object.ID)

	created, err := store.CreateEdge(ctx, &knowledge.KnowledgeEdge{
		SubjectID:         subject.ID,
		Predicate:         "WORKS_ON",
		ObjectID:          object.ID,
		Strength:          0.4,
		MentionCount:      1,
		ContextCount:      1,
		AverageConfidence: 0.8,
		FirstSeen:         now,
		LastSeen:          now,
	})
	if err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}

	fetched, err := store.GetEdge(ctx, subject.ID, "WORKS_ON", object.ID)
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("created edge not found")
	}
	if fetched.ID != created.ID || fetched.Strength != 0.4 {
		t.Errorf("unexpected edge %+v", fetched)
	}

	reversed, err := store.GetEdge(ctx, object.ID, "WORKS_ON", subject.ID)
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if reversed != nil {
		t.Error("edges must be directed")
	}

	fetched.Strength = 0.2
	fetched.MentionCount = 2
	if err := store.UpdateEdge(ctx, fetched); err != nil {
		t.Fatalf("UpdateEdge failed: %v", err)
	}

	bySubject, err := store.EdgesBySubject(ctx, subject.ID)
	if err != nil {
		t.Fatalf("EdgesBySubject failed: %v", err)
	}
	if len(bySubject) != 1 || bySubject[0].Strength != 0.2 {
		t.Errorf("unexpected edges by subject %+v", bySubject)
	}

	byObject, err := store.EdgesByObject(ctx, object.ID)
	if err != nil {
		t.Fatalf("EdgesByObject failed: %v", err)
	}
	if len(byObject) != 1 || byObject[0].MentionCount != 2 {
		t.Errorf("unexpected edges by object %+v", byObject)
	}

	if err := store.UpdateEdgeStrength(ctx, created.ID, 0.1); err != nil {
		t.Fatalf("UpdateEdgeStrength failed: %v", err)
	}
	fetched, err = store.GetEdge(ctx, subject.ID, "WORKS_ON", object.ID)
	if err != nil {
		t.Fatalf("GetEdge after strength update failed: %v", err)
	}
	if fetched.Strength != 0.1 {
		t.Errorf("expected strength 0.1, got %f", fetched.Strength)
	}
	if fetched.MentionCount != 2 {
		t.Errorf("strength-only update must not touch mention count, got %d", fetched.MentionCount)
	}
}

func TestStore_StructureRoundtrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	name := "test-pillar-" + time.Now().Format("20060102150405.000")
	created, err := store.CreateStructure(ctx, &knowledge.StructureElement{
		Type:         knowledge.StructurePillar,
		Name:         name,
		MentionCount: 1,
		ContextCount: 1,
		FirstSeen:    now,
		LastSeen:     now,
		NodeIDs:      []int64{42},
	})
	if err != nil {
		t.Fatalf("CreateStructure failed: %v", err)
	}
	defer cleanupStructure(store, created.ID)

	found, err := store.FindStructure(ctx, knowledge.StructurePillar, name)
	if err != nil {
		t.Fatalf("FindStructure failed: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatal("created structure not found")
	}
	if len(found.NodeIDs) != 1 || found.NodeIDs[0] != 42 {
		t.Errorf("unexpected node ids %+v", found.NodeIDs)
	}

	found.MentionCount = 2
	found.NodeIDs = append(found.NodeIDs, 43)
	if err := store.UpdateStructure(ctx, found); err != nil {
		t.Fatalf("UpdateStructure failed: %v", err)
	}

	again, err := store.FindStructure(ctx, knowledge.StructurePillar, name)
	if err != nil {
		t.Fatalf("FindStructure after update failed: %v", err)
	}
	if again.MentionCount != 2 || len(again.NodeIDs) != 2 {
		t.Errorf("update not persisted: %+v", again)
	}
}

func TestStore_CreateLink(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	link := &knowledge.EntityKnowledgeLink{
		ID:         "test-link-" + time.Now().Format("20060102150405.000"),
		EntityID:   "raw-entity-1",
		NodeID:     1,
		Similarity: 0.9,
		Method:     knowledge.MatchFuzzy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	session := store.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)
	result, err := session.Run(ctx,
		"MATCH (l:EntityLink {id: $id}) RETURN l.method as method",
		map[string]interface{}{"id": link.ID})
	if err != nil {
		t.Fatalf("link lookup failed: %v", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		t.Fatalf("link not found: %v", err)
	}
	method, _ := record.Get("method")
	if method != "fuzzy" {
		t.Errorf("expected method fuzzy, got %v", method)
	}
	_, _ = session.Run(ctx, "MATCH (l:EntityLink {id: $id}) DELETE l", map[string]interface{}{"id": link.ID})
}
