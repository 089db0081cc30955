package agents

import (
	"context"
	"testing"

	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/search"
)

func fixtureStore() *graph.MemStore {
	store := graph.NewMemStore()
	store.AddEntity(graph.Entity{ID: "e1", Name: "Marie Curie", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "e2", Name: "Pierre Curie", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "e3", Name: "Radium", Type: "Element"})
	store.AddEntity(graph.Entity{ID: "e4", Name: "Nobel Prize", Type: "Award"})
	store.AddRelation(graph.Relation{SourceID: "e1", TargetID: "e2", Type: "married_to"})
	store.AddRelation(graph.Relation{SourceID: "e1", TargetID: "e3", Type: "discovered"})
	store.AddRelation(graph.Relation{SourceID: "e1", TargetID: "e4", Type: "awarded"})
	return store
}

func TestExecuteTaskPicksFirstReadyMatchingAgent(t *testing.T) {
	store := fixtureStore()
	embedder := embed.NewStubEmbedder(8)
	searcher := search.NewBasic(store, embedder)
	if err := searcher.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize searcher: %v", err)
	}

	c := NewCoordinator()
	c.Register(NewEntitySearchAgent(searcher))
	c.Register(NewRelationshipAnalysisAgent(store))

	result := c.ExecuteTask(context.Background(), "entity_search", "Marie Curie", nil)
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
}

func TestExecuteTaskReturnsNoAgentForUnknownKind(t *testing.T) {
	c := NewCoordinator()
	result := c.ExecuteTask(context.Background(), "nonexistent_kind", "", nil)
	if result.Success {
		t.Fatalf("expected failure for unknown kind")
	}
	if result.Error != ErrNoAgent.Error() {
		t.Fatalf("expected ErrNoAgent, got %q", result.Error)
	}
}

func TestExecuteTasksParallelPreservesKeysAndIsolatesFailures(t *testing.T) {
	store := fixtureStore()
	c := NewCoordinator()
	c.Register(NewRelationshipAnalysisAgent(store))

	requests := map[string]TaskRequest{
		"ok":   {Kind: "relationship_analysis", Context: map[string]any{"entity_id": "e1"}},
		"fail": {Kind: "path_finding", Context: map[string]any{}}, // missing entity_id/target_id
	}
	results := c.ExecuteTasksParallel(context.Background(), requests)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results["ok"].Success {
		t.Fatalf("expected ok task to succeed, got error %q", results["ok"].Error)
	}
	if results["fail"].Success {
		t.Fatalf("expected fail task to fail")
	}
}

func TestEntitySearchAgentIdentificationDedupesByMaxScore(t *testing.T) {
	store := fixtureStore()
	embedder := embed.NewStubEmbedder(8)
	searcher := search.NewBasic(store, embedder)
	if err := searcher.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize searcher: %v", err)
	}
	agent := NewEntitySearchAgent(searcher)

	result, err := agent.Execute(context.Background(), TaskRequest{Kind: "entity_identification", Description: "Marie Curie radium"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success")
	}
	matches, _ := result.Metadata["matches"].([]search.Scored[graph.Entity])
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m.Item.ID] {
			t.Fatalf("entity %s returned more than once", m.Item.ID)
		}
		seen[m.Item.ID] = true
	}
}

func TestRelationshipAgentFindPathsBetweenConnectedEntities(t *testing.T) {
	store := fixtureStore()
	agent := NewRelationshipAnalysisAgent(store)

	result, err := agent.Execute(context.Background(), TaskRequest{
		Kind:    "path_finding",
		Context: map[string]any{"entity_id": "e1", "target_id": "e3"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected a path to be found")
	}
}

func TestRelationshipAgentConnectionDiscoveryCountsReachable(t *testing.T) {
	store := fixtureStore()
	agent := NewRelationshipAnalysisAgent(store)

	result, err := agent.Execute(context.Background(), TaskRequest{
		Kind:    "connection_discovery",
		Context: map[string]any{"entity_id": "e1"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	depths, _ := result.Metadata["depths"].(map[string]int)
	if len(depths) != 3 {
		t.Fatalf("expected 3 reachable entities from e1, got %d", len(depths))
	}
}

func TestRelationshipAgentSummaryReportsCounts(t *testing.T) {
	store := fixtureStore()
	agent := NewRelationshipAnalysisAgent(store)

	result, err := agent.Execute(context.Background(), TaskRequest{Kind: "relation_summary"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success || result.Text == "" {
		t.Fatalf("expected non-empty summary")
	}
}
