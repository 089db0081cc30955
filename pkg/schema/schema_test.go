package schema

import (
	"context"
	"testing"
	"time"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

func newFixtureStore() *graph.MemStore {
	s := graph.NewMemStore()
	s.AddEntity(graph.Entity{ID: "p1", Name: "Albert Einstein", Type: "Person", Properties: map[string]any{"name": "Albert Einstein"}})
	s.AddEntity(graph.Entity{ID: "p2", Name: "Marie Curie", Type: "Person", Properties: map[string]any{"name": "Marie Curie"}})
	s.AddEntity(graph.Entity{ID: "t1", Name: "Theory of Relativity", Type: "Theory", Properties: map[string]any{"name": "Theory of Relativity"}})
	s.AddRelation(graph.Relation{SourceID: "p1", TargetID: "t1", Type: "DEVELOPED", Directed: true})
	return s
}

func TestInspectorBuildsSchemaFromStore(t *testing.T) {
	store := newFixtureStore()
	ins := NewInspector(store, time.Minute, 5)

	s, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.NodeTypes["Person"]; !ok {
		t.Fatalf("expected Person node type, got %+v", s.NodeTypes)
	}
	if _, ok := s.RelationshipTypes["DEVELOPED"]; !ok {
		t.Fatalf("expected DEVELOPED relation type, got %+v", s.RelationshipTypes)
	}
	if s.NodeTypes["Person"].Count != 2 {
		t.Fatalf("expected 2 Person nodes, got %d", s.NodeTypes["Person"].Count)
	}
}

func TestInspectorFallsBackToDegenerateSchema(t *testing.T) {
	store := graph.NewMemStore()
	store.FailNodeTypeEnumeration(true)
	ins := NewInspector(store, time.Minute, 5)

	s, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.NodeTypes["Entity"]; !ok {
		t.Fatalf("expected degenerate Entity node type, got %+v", s.NodeTypes)
	}
	if _, ok := s.RelationshipTypes["RELATED_TO"]; !ok {
		t.Fatalf("expected degenerate RELATED_TO relation type, got %+v", s.RelationshipTypes)
	}
}

func TestInspectorCachesWithinTTL(t *testing.T) {
	store := newFixtureStore()
	ins := NewInspector(store, time.Hour, 5)

	first, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached schema to be returned by reference")
	}
}

func TestInspectorRebuildsAfterInvalidate(t *testing.T) {
	store := newFixtureStore()
	ins := NewInspector(store, time.Hour, 5)

	first, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ins.Invalidate()
	second, err := ins.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("expected a freshly built schema after invalidate")
	}
}

func TestDeriveStrategyEffectiveWhenScoresClearThresholds(t *testing.T) {
	store := newFixtureStore()
	ins := NewInspector(store, time.Hour, 5)
	s, _ := ins.Schema(context.Background())

	strat := DeriveStrategy(s, "who developed the theory of relativity", 0.3, 0.2)
	if !strat.Effective {
		t.Fatalf("expected strategy to be effective, got %+v", strat)
	}
	if len(strat.NodeTypes) == 0 {
		t.Fatalf("expected at least one scored node type")
	}
}

func TestDeriveStrategyIneffectiveForUnrelatedQuestion(t *testing.T) {
	store := newFixtureStore()
	ins := NewInspector(store, time.Hour, 5)
	s, _ := ins.Schema(context.Background())

	strat := DeriveStrategy(s, "xyz qqq zzz", 0.3, 0.2)
	if strat.Effective {
		t.Fatalf("expected strategy to be ineffective for unrelated question, got %+v", strat)
	}
}
