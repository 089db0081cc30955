package session

import (
	"context"
	"strings"
	"testing"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

func chainStore() *graph.MemStore {
	store := graph.NewMemStore()
	store.AddEntity(graph.Entity{ID: "a", Name: "A", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "b", Name: "B", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "c", Name: "C", Type: "Person"})
	store.AddRelation(graph.Relation{SourceID: "a", TargetID: "b", Type: "KNOWS"})
	store.AddRelation(graph.Relation{SourceID: "b", TargetID: "c", Type: "KNOWS"})
	return store
}

func TestShortestPathFindsTwoHopChain(t *testing.T) {
	store := chainStore()
	steps, ok := shortestPath(context.Background(), store, "a", "c", 4)
	if !ok {
		t.Fatalf("expected a path from a to c")
	}
	if len(steps) != 2 {
		t.Fatalf("expected a 2-hop path, got %d hops", len(steps))
	}
}

func TestDescribePathRendersPlainArrowChain(t *testing.T) {
	store := chainStore()
	steps, ok := shortestPath(context.Background(), store, "a", "c", 4)
	if !ok {
		t.Fatalf("expected a path from a to c")
	}
	desc := describePath(context.Background(), store, steps, "a")
	if desc != "A -> B -> C" {
		t.Fatalf("expected %q, got %q", "A -> B -> C", desc)
	}
}

func TestHopSummaryReportsHopCount(t *testing.T) {
	store := chainStore()
	steps, ok := shortestPath(context.Background(), store, "a", "c", 4)
	if !ok {
		t.Fatalf("expected a path from a to c")
	}
	summary := hopSummary(context.Background(), store, "a", "c", len(steps))
	if summary != "A 与 C 通过 2 跳连接" {
		t.Fatalf("unexpected hop summary: %q", summary)
	}
}

func TestIndirectConnectionsEmitsHopSummaryAndPlainPath(t *testing.T) {
	store := chainStore()
	embedderEngine := &Engine{Store: store}
	session := &Session{ID: "s1", engine: embedderEngine}

	evidence := session.indirectConnections(context.Background(), []string{"a", "c"})
	var sawHopSummary, sawPlainPath bool
	for _, e := range evidence {
		if strings.Contains(e, "[Indirect Connection]") && strings.Contains(e, "通过 2 跳连接") {
			sawHopSummary = true
		}
		if e == "A -> B -> C" {
			sawPlainPath = true
		}
	}
	if !sawHopSummary {
		t.Fatalf("expected a hop-count summary evidence line, got %v", evidence)
	}
	if !sawPlainPath {
		t.Fatalf("expected a plain path description evidence line, got %v", evidence)
	}
}
