package search

import (
	"context"
	"strings"

	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/schema"
)

// SchemaGuided is the schema-aware searcher: it consults
// the schema inspector's SearchStrategy to narrow the candidate node
// types before running a prioritized match cascade (exact → fuzzy
// prefix → single-character fallback).
type SchemaGuided struct {
	store     graph.Store
	embedder  embed.Embedder
	inspector *schema.Inspector
	index     *entityIndex

	nodeThreshold float64
	relThreshold  float64
}

// NewSchemaGuided creates a SchemaGuided searcher. nodeThreshold and
// relThreshold are the SearchStrategy effectiveness thresholds,
// defaulting to 0.3 and 0.2 respectively when left at zero.
func NewSchemaGuided(store graph.Store, embedder embed.Embedder, inspector *schema.Inspector, nodeThreshold, relThreshold float64) *SchemaGuided {
	if nodeThreshold <= 0 {
		nodeThreshold = 0.3
	}
	if relThreshold <= 0 {
		relThreshold = 0.2
	}
	return &SchemaGuided{
		store:         store,
		embedder:      embedder,
		inspector:     inspector,
		index:         newEntityIndex(),
		nodeThreshold: nodeThreshold,
		relThreshold:  relThreshold,
	}
}

// Initialize triggers the schema inspector and bootstraps the entity
// index.
func (s *SchemaGuided) Initialize(ctx context.Context) error {
	if _, err := s.inspector.Schema(ctx); err != nil {
		return err
	}
	if s.index.isWarm() {
		return nil
	}
	return bootstrap(ctx, s.store, s.index)
}

func (s *SchemaGuided) SearchEntities(ctx context.Context, queryText string, k int) ([]Scored[graph.Entity], error) {
	candidates := s.index.snapshot()

	strat, err := s.inspector.DeriveStrategy(ctx, queryText, s.nodeThreshold, s.relThreshold)
	if err != nil {
		return nil, err
	}
	if strat.Effective {
		candidates = filterByTypes(candidates, strat.NodeTypes)
	}
	// An ineffective strategy degrades to the full candidate scope
	// rather than returning nothing (graceful degradation).

	scores := map[string]float64{}
	byID := map[string]graph.Entity{}
	for _, e := range candidates {
		byID[e.ID] = e
	}

	// Stage 1: exact match.
	for _, e := range candidates {
		if strings.EqualFold(e.Name, queryText) {
			updateMax(scores, e.ID, 1.0)
		}
	}

	// Stage 2: fuzzy prefix, shrinking from the full query down to
	// length 2.
	ql := strings.ToLower(queryText)
	if len(scores) < k && len(ql) >= 2 {
		for prefixLen := len(ql); prefixLen >= 2 && len(scores) < k; prefixLen-- {
			prefix := ql[:prefixLen]
			// Longer surviving prefixes score higher, within a band
			// below the exact-match tier and above the fallback tier;
			// only the cascade order is pinned, not this tier's
			// exact weighting.
			tierScore := 0.5 + 0.4*float64(prefixLen)/float64(len(ql))
			for _, e := range candidates {
				if strings.HasPrefix(strings.ToLower(e.Name), prefix) {
					updateMax(scores, e.ID, tierScore)
				}
			}
		}
	}

	// Stage 3: single-character fallback — score every still-unscored
	// candidate by whether its name contains the original query at
	// all: 0.9 for a substring match, 0.3 otherwise.
	if len(scores) < k {
		for _, e := range candidates {
			if _, scored := scores[e.ID]; scored {
				continue
			}
			if strings.Contains(strings.ToLower(e.Name), ql) {
				updateMax(scores, e.ID, 0.9)
			} else {
				updateMax(scores, e.ID, 0.3)
			}
		}
	}

	results := make([]Scored[graph.Entity], 0, len(scores))
	for id, score := range scores {
		results = append(results, Scored[graph.Entity]{Item: byID[id], Score: score})
	}
	sortScoredDesc(results, func(e graph.Entity) string { return e.ID })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func filterByTypes(entities []graph.Entity, nodeTypes []schema.TypeScore) []graph.Entity {
	if len(nodeTypes) == 0 {
		return entities
	}
	allowed := map[string]bool{}
	for _, ts := range nodeTypes {
		allowed[ts.Name] = true
	}
	out := make([]graph.Entity, 0, len(entities))
	for _, e := range entities {
		if allowed[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

func updateMax(scores map[string]float64, id string, score float64) {
	if cur, ok := scores[id]; !ok || score > cur {
		scores[id] = score
	}
}

func (s *SchemaGuided) ScoreRelations(ctx context.Context, queryText string, relations []graph.Relation) ([]Scored[graph.Relation], error) {
	// Relation scoring is the same lexical+cosine blend regardless of
	// searcher variant; the schema only narrows entity candidates.
	b := &Basic{store: s.store, embedder: s.embedder, index: s.index}
	return b.ScoreRelations(ctx, queryText, relations)
}

func (s *SchemaGuided) CosineSimilarity(ctx context.Context, queryText, text string) (float64, error) {
	b := &Basic{embedder: s.embedder}
	return b.CosineSimilarity(ctx, queryText, text)
}

func (s *SchemaGuided) CosineSimilarities(ctx context.Context, queryText string, texts []string) ([]float64, error) {
	b := &Basic{embedder: s.embedder}
	return b.CosineSimilarities(ctx, queryText, texts)
}
