package graph

import (
	"context"
	"errors"
	"testing"
)

func TestMemStoreFindEntity(t *testing.T) {
	s := NewMemStore()
	s.AddEntity(Entity{ID: "e1", Name: "Einstein", Type: "Person"})

	got, err := s.FindEntity(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Einstein" {
		t.Fatalf("got name %q, want Einstein", got.Name)
	}

	_, err = s.FindEntity(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreEntityRelationsBothDirections(t *testing.T) {
	s := NewMemStore()
	s.AddEntity(Entity{ID: "einstein", Type: "Person"})
	s.AddEntity(Entity{ID: "relativity", Type: "Theory"})
	s.AddRelation(Relation{SourceID: "einstein", TargetID: "relativity", Type: "DEVELOPED", Directed: true})

	rels, err := s.EntityRelations(context.Background(), "relativity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 incident relation, got %d", len(rels))
	}
	if rels[0].Other("relativity") != "einstein" {
		t.Fatalf("expected other endpoint einstein, got %s", rels[0].Other("relativity"))
	}
}

func TestMemStoreNodeCountAndTypes(t *testing.T) {
	s := NewMemStore()
	s.AddEntity(Entity{ID: "e1", Type: "Person"})
	s.AddEntity(Entity{ID: "e2", Type: "Person"})
	s.AddEntity(Entity{ID: "e3", Type: "Theory"})

	types, err := s.AllNodeTypes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 distinct types, got %v", types)
	}

	n, err := s.NodeCount(context.Background(), "Person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 persons, got %d", n)
	}
}

func TestMemStoreFallbackOnEnumerationFailure(t *testing.T) {
	s := NewMemStore()
	s.FailNodeTypeEnumeration(true)

	_, err := s.AllNodeTypes(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAnalyzeNodeProperties(t *testing.T) {
	s := NewMemStore()
	s.AddEntity(Entity{ID: "e1", Type: "Person", Properties: map[string]any{"born": 1879}})
	s.AddEntity(Entity{ID: "e2", Type: "Person", Properties: map[string]any{"born": 1900}})

	infos, err := s.AnalyzeNodeProperties(context.Background(), "Person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "born" {
		t.Fatalf("expected a single 'born' property, got %+v", infos)
	}
	if infos[0].Kind != KindInteger {
		t.Fatalf("expected integer kind, got %v", infos[0].Kind)
	}
	if infos[0].Frequency != 1.0 {
		t.Fatalf("expected frequency 1.0, got %v", infos[0].Frequency)
	}
}
