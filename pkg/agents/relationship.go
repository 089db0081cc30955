package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

// RelationshipAnalysisAgent wraps the graph store contract for the
// coordinator: {relationship_analysis, path_finding,
// connection_discovery, relation_summary}.
type RelationshipAnalysisAgent struct {
	store graph.Store
}

// NewRelationshipAnalysisAgent creates a RelationshipAnalysisAgent
// over store.
func NewRelationshipAnalysisAgent(store graph.Store) *RelationshipAnalysisAgent {
	return &RelationshipAnalysisAgent{store: store}
}

func (a *RelationshipAnalysisAgent) Name() string { return "relationship-analysis" }

func (a *RelationshipAnalysisAgent) CanHandle(kind, _ string) bool {
	switch kind {
	case "relationship_analysis", "path_finding", "connection_discovery", "relation_summary":
		return true
	}
	return false
}

func (a *RelationshipAnalysisAgent) State() State { return StateReady }

func (a *RelationshipAnalysisAgent) Execute(ctx context.Context, req TaskRequest) (Result, error) {
	entityID, _ := req.Context["entity_id"].(string)

	switch req.Kind {
	case "relationship_analysis":
		return a.analyze(ctx, entityID)
	case "path_finding":
		target, _ := req.Context["target_id"].(string)
		return a.findPaths(ctx, entityID, target, maxDepthFrom(req.Context, 3))
	case "connection_discovery":
		return a.discoverConnections(ctx, entityID, maxDepthFrom(req.Context, 3))
	case "relation_summary":
		return a.summarize(ctx)
	default:
		return Result{}, fmt.Errorf("relationship-analysis agent: unsupported kind %q", req.Kind)
	}
}

func maxDepthFrom(ctx map[string]any, def int) int {
	if v, ok := ctx["max_depth"].(int); ok && v > 0 {
		return v
	}
	if v, ok := ctx["max_depth"].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

// analyze groups entityID's incident relations by type and summarizes
// the neighbor on each.
func (a *RelationshipAnalysisAgent) analyze(ctx context.Context, entityID string) (Result, error) {
	relations, err := a.store.EntityRelations(ctx, entityID)
	if err != nil {
		return Result{}, err
	}
	byType := map[string][]string{}
	for _, r := range relations {
		other := r.Other(entityID)
		name := other
		if e, err := a.store.FindEntity(ctx, other); err == nil && e.Name != "" {
			name = e.Name
		}
		byType[r.Type] = append(byType[r.Type], name)
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	for i, t := range types {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", t, strings.Join(byType[t], ", "))
	}
	return Result{Success: true, Text: b.String(), Metadata: map[string]any{"by_type": byType}}, nil
}

// findPaths performs bounded BFS from source to target (at most
// maxDepth hops) and returns up to 5 paths, distinct by their full edge
// sequence: the first ones the BFS reaches the target by, shortest
// first. Intermediate entities are visited once, so this is not a
// k-shortest-paths search; the store contract exposes no such primitive.
func (a *RelationshipAnalysisAgent) findPaths(ctx context.Context, source, target string, maxDepth int) (Result, error) {
	if source == "" || target == "" {
		return Result{}, fmt.Errorf("relationship-analysis agent: path_finding requires entity_id and target_id")
	}

	type frame struct {
		id   string
		path []graph.Relation
	}
	visited := map[string]bool{source: true}
	queue := []frame{{id: source}}
	var found [][]graph.Relation

	for depth := 0; depth < maxDepth && len(queue) > 0 && len(found) < 5; depth++ {
		var next []frame
		for _, f := range queue {
			relations, err := a.store.EntityRelations(ctx, f.id)
			if err != nil {
				continue
			}
			for _, r := range relations {
				other := r.Other(f.id)
				path := append(append([]graph.Relation{}, f.path...), r)
				if other == target {
					found = append(found, path)
					if len(found) >= 5 {
						break
					}
					continue
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				next = append(next, frame{id: other, path: path})
			}
			if len(found) >= 5 {
				break
			}
		}
		queue = next
	}

	if len(found) == 0 {
		return Result{Success: false, Error: "no path found", Text: "no path found"}, nil
	}
	var b strings.Builder
	for i, p := range found {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(describeHops(source, p))
	}
	return Result{Success: true, Text: b.String(), Metadata: map[string]any{"paths": found}}, nil
}

// discoverConnections performs bounded BFS and collects every reachable
// entity with its minimum depth.
func (a *RelationshipAnalysisAgent) discoverConnections(ctx context.Context, source string, maxDepth int) (Result, error) {
	if source == "" {
		return Result{}, fmt.Errorf("relationship-analysis agent: connection_discovery requires entity_id")
	}
	depths := map[string]int{source: 0}
	queue := []string{source}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, id := range queue {
			relations, err := a.store.EntityRelations(ctx, id)
			if err != nil {
				continue
			}
			for _, r := range relations {
				other := r.Other(id)
				if _, seen := depths[other]; seen {
					continue
				}
				depths[other] = depth + 1
				next = append(next, other)
			}
		}
		queue = next
	}
	delete(depths, source)

	return Result{Success: true, Text: fmt.Sprintf("%d entities reachable within depth %d", len(depths), maxDepth), Metadata: map[string]any{"depths": depths}}, nil
}

// summarize reports per-relationship-type global counts via
// graph.Store's schema-level counters.
func (a *RelationshipAnalysisAgent) summarize(ctx context.Context) (Result, error) {
	types, err := a.store.AllRelationshipTypes(ctx)
	if err != nil {
		return Result{}, err
	}
	counts := map[string]int64{}
	for _, t := range types {
		if c, err := a.store.RelationshipCount(ctx, t); err == nil {
			counts[t] = c
		}
	}
	sort.Strings(types)
	var b strings.Builder
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", t, counts[t])
	}
	return Result{Success: true, Text: b.String(), Metadata: map[string]any{"counts": counts}}, nil
}

func describeHops(source string, path []graph.Relation) string {
	var b strings.Builder
	b.WriteString(source)
	cur := source
	for _, r := range path {
		next := r.Other(cur)
		fmt.Fprintf(&b, " -[%s]-> %s", r.Type, next)
		cur = next
	}
	return b.String()
}
