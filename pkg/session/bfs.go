package session

import (
	"context"
	"fmt"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

// shortestPath runs a breadth-first search from source to target,
// bounded by maxDepth hops, over store.EntityRelations. It returns the
// discovered edge names in order, or ok=false if no path was found
// within the bound.
func shortestPath(ctx context.Context, store graph.Store, source, target string, maxDepth int) (steps []graph.Relation, ok bool) {
	if source == target {
		return nil, false
	}

	type frame struct {
		id   string
		path []graph.Relation
	}

	visited := map[string]bool{source: true}
	queue := []frame{{id: source}}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []frame
		for _, f := range queue {
			relations, err := store.EntityRelations(ctx, f.id)
			if err != nil {
				continue
			}
			for _, r := range relations {
				other := r.Other(f.id)
				if other == target {
					return append(append([]graph.Relation{}, f.path...), r), true
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				next = append(next, frame{id: other, path: append(append([]graph.Relation{}, f.path...), r)})
			}
		}
		queue = next
	}
	return nil, false
}

// describePath renders a discovered path as a plain "A -> B -> C" chain
// of entity names, bracket- and relation-type-free so it reads as a
// narrative hop sequence rather than a graph-query fragment.
func describePath(ctx context.Context, store graph.Store, path []graph.Relation, source string) string {
	cur := source
	out := nameOf(ctx, store, cur)
	for _, r := range path {
		next := r.Other(cur)
		out += " -> " + nameOf(ctx, store, next)
		cur = next
	}
	return out
}

// hopSummary renders a hop-count connection summary between source and
// target, e.g. "A 与 C 通过 2 跳连接".
func hopSummary(ctx context.Context, store graph.Store, source, target string, hops int) string {
	return fmt.Sprintf("%s 与 %s 通过 %d 跳连接", nameOf(ctx, store, source), nameOf(ctx, store, target), hops)
}

func nameOf(ctx context.Context, store graph.Store, id string) string {
	if e, err := store.FindEntity(ctx, id); err == nil && e.Name != "" {
		return e.Name
	}
	return id
}
