// Package search implements the search layer: a
// ranked entity lookup and relation scorer, with two interchangeable
// implementations — a fixed-scope "basic" searcher and a schema-guided
// searcher that consults the schema inspector's SearchStrategy before
// scoring.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

// Scored pairs an item with its relevance score in [0, 1].
type Scored[T any] struct {
	Item  T
	Score float64
}

// Searcher is the C5 contract: ranked entity search, relation scoring
// and the two cosine-similarity helpers the traversal engine (C9) uses
// directly.
type Searcher interface {
	// Initialize primes the searcher (bootstraps its entity index,
	// warms the schema cache for the schema-guided variant). Safe to
	// call more than once.
	Initialize(ctx context.Context) error

	// SearchEntities returns up to k entities matching queryText,
	// sorted by descending score; entries with equal scores are
	// ordered by entity id.
	SearchEntities(ctx context.Context, queryText string, k int) ([]Scored[graph.Entity], error)

	// ScoreRelations scores the given relations against queryText,
	// sorted by descending score; entries with equal scores are
	// ordered by (source, type, target). Unlike SearchEntities, the
	// candidate set is supplied by the caller (typically
	// graph.Store.EntityRelations on an already-visited entity), so no
	// index lookup is required.
	ScoreRelations(ctx context.Context, queryText string, relations []graph.Relation) ([]Scored[graph.Relation], error)

	CosineSimilarity(ctx context.Context, queryText, text string) (float64, error)
	CosineSimilarities(ctx context.Context, queryText string, texts []string) ([]float64, error)
}

// bootstrapQuery is the query_text convention a Store implementation
// must honor for the search layer's initializer to seed its entity
// index: execute_parameterized_query is restricted to the schema
// inspector and the initializer.
const bootstrapQuery = "list_entities"

// entityIndex is the in-memory entity cache the initializer builds and
// that search_entities scans. It is shared by both Searcher
// implementations.
type entityIndex struct {
	mu       sync.RWMutex
	byID     map[string]graph.Entity
	warmed   bool
}

func newEntityIndex() *entityIndex {
	return &entityIndex{byID: map[string]graph.Entity{}}
}

func (idx *entityIndex) seed(entities []graph.Entity) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entities {
		idx.byID[e.ID] = e
	}
	idx.warmed = true
}

func (idx *entityIndex) snapshot() []graph.Entity {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]graph.Entity, 0, len(idx.byID))
	for _, e := range idx.byID {
		out = append(out, e)
	}
	return out
}

func (idx *entityIndex) isWarm() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.warmed
}

// bootstrap fetches all entities from store via the list_entities
// convention and seeds idx. On a store error the index is marked warm
// but left empty, so search_entities returns no results, and the
// wrapped error is returned to the caller of Initialize.
func bootstrap(ctx context.Context, store graph.Store, idx *entityIndex) error {
	rows, err := store.ExecuteParameterizedQuery(ctx, bootstrapQuery, nil)
	if err != nil {
		idx.mu.Lock()
		idx.warmed = true
		idx.mu.Unlock()
		return fmt.Errorf("search: bootstrap entity index: %w", err)
	}
	entities := make([]graph.Entity, 0, len(rows))
	for _, row := range rows {
		e := graph.Entity{
			ID:   asString(row["id"]),
			Name: asString(row["name"]),
			Type: asString(row["type"]),
		}
		if props, ok := row["properties"].(map[string]any); ok {
			e.Properties = props
		}
		if e.ID == "" {
			continue
		}
		entities = append(entities, e)
	}
	idx.seed(entities)
	return nil
}

// IndexEntities lets a caller (typically the traversal engine, as it
// discovers new entities mid-session) add entities to the shared index
// without a full re-bootstrap.
func IndexEntities(s Searcher, entities []graph.Entity) {
	switch impl := s.(type) {
	case *Basic:
		impl.index.seed(entities)
	case *SchemaGuided:
		impl.index.seed(entities)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// lexicalScore is the substring/equality scorer shared by the basic
// searcher's entity and relation scoring: 1.0 for an exact
// case-insensitive match, 0.7 when either string contains the other, 0
// otherwise.
func lexicalScore(query, candidate string) float64 {
	if candidate == "" {
		return 0
	}
	ql, cl := strings.ToLower(query), strings.ToLower(candidate)
	switch {
	case ql == cl:
		return 1.0
	case strings.Contains(cl, ql) || strings.Contains(ql, cl):
		return 0.7
	default:
		return 0
	}
}

func sortScoredDesc[T any](items []Scored[T], idOf func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return idOf(items[i].Item) < idOf(items[j].Item)
	})
}

// relationKey is the (source, type, target) identity used to break
// score ties deterministically when sorting scored relations (mirrors
// reason.Step's equality rule).
func relationKey(r graph.Relation) string {
	return r.SourceID + "|" + r.Type + "|" + r.TargetID
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
