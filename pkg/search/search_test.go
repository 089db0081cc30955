package search

import (
	"context"
	"testing"
	"time"

	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/schema"
)

func fixtureStore() *graph.MemStore {
	s := graph.NewMemStore()
	s.AddEntity(graph.Entity{ID: "p1", Name: "Albert Einstein", Type: "Person"})
	s.AddEntity(graph.Entity{ID: "p2", Name: "Albert Schweitzer", Type: "Person"})
	s.AddEntity(graph.Entity{ID: "t1", Name: "Theory of Relativity", Type: "Theory"})
	s.AddRelation(graph.Relation{SourceID: "p1", TargetID: "t1", Type: "DEVELOPED", Directed: true})
	return s
}

func TestBasicSearchEntitiesExactMatchRanksFirst(t *testing.T) {
	store := fixtureStore()
	b := NewBasic(store, embed.NewStubEmbedder(4))
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := b.SearchEntities(context.Background(), "Albert Einstein", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one result")
	}
	if results[0].Item.ID != "p1" {
		t.Fatalf("expected exact match p1 ranked first, got %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not sorted descending: %+v", results)
		}
	}
}

func TestBasicScoreRelationsSortedDescending(t *testing.T) {
	store := fixtureStore()
	b := NewBasic(store, embed.NewStubEmbedder(4))
	relations := []graph.Relation{
		{SourceID: "p1", TargetID: "t1", Type: "DEVELOPED"},
		{SourceID: "p1", TargetID: "p2", Type: "KNOWS"},
	}

	results, err := b.ScoreRelations(context.Background(), "developed", relations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 scored relations, got %d", len(results))
	}
	if results[0].Item.Type != "DEVELOPED" {
		t.Fatalf("expected DEVELOPED ranked first for matching query, got %+v", results[0])
	}
}

func TestBasicCosineSimilarityIsDeterministic(t *testing.T) {
	store := fixtureStore()
	b := NewBasic(store, embed.NewStubEmbedder(8))

	a, err := b.CosineSimilarity(context.Background(), "hello", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a < 0.999 {
		t.Fatalf("expected ~1.0 cosine similarity for identical text, got %v", a)
	}

	sims, err := b.CosineSimilarities(context.Background(), "hello", []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sims) != 2 {
		t.Fatalf("expected 2 similarities, got %d", len(sims))
	}
}

func TestSchemaGuidedSearchEntitiesCascade(t *testing.T) {
	store := fixtureStore()
	inspector := schema.NewInspector(store, time.Hour, 5)
	sg := NewSchemaGuided(store, embed.NewStubEmbedder(4), inspector, 0.3, 0.2)
	if err := sg.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := sg.SearchEntities(context.Background(), "Albert", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected both Albert-prefixed entities plus the fallback-scored one, got %+v", results)
	}
	for _, r := range results[:2] {
		if r.Item.Type != "Person" || r.Score <= 0.3 {
			t.Fatalf("expected the Albert-prefixed Person entities ranked above the fallback tier, got %+v", r)
		}
	}
	if results[2].Item.ID != "t1" || results[2].Score != 0.3 {
		t.Fatalf("expected t1 last with the 0.3 fallback score, got %+v", results[2])
	}
}

func TestSchemaGuidedSearchEntitiesDedupesByMaxScore(t *testing.T) {
	store := fixtureStore()
	inspector := schema.NewInspector(store, time.Hour, 5)
	sg := NewSchemaGuided(store, embed.NewStubEmbedder(4), inspector, 0.3, 0.2)
	if err := sg.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := sg.SearchEntities(context.Background(), "Albert Einstein", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Item.ID] {
			t.Fatalf("duplicate entity id %s in results", r.Item.ID)
		}
		seen[r.Item.ID] = true
	}
	if !seen["p1"] {
		t.Fatalf("expected exact match p1 present, got %+v", results)
	}
}

func TestSearchEntitiesKTruncatesResults(t *testing.T) {
	store := fixtureStore()
	b := NewBasic(store, embed.NewStubEmbedder(4))
	if err := b.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := b.SearchEntities(context.Background(), "a", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) > 1 {
		t.Fatalf("expected at most 1 result, got %d", len(results))
	}
}
