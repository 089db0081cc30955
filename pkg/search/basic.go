package search

import (
	"context"

	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
)

// Basic is the fixed-scope searcher: lexical substring
// matching plus embedding cosine similarity on name-like properties,
// with no schema involvement.
type Basic struct {
	store    graph.Store
	embedder embed.Embedder
	index    *entityIndex
}

// NewBasic creates a Basic searcher over store, scoring with embedder.
func NewBasic(store graph.Store, embedder embed.Embedder) *Basic {
	return &Basic{store: store, embedder: embedder, index: newEntityIndex()}
}

func (b *Basic) Initialize(ctx context.Context) error {
	if b.index.isWarm() {
		return nil
	}
	return bootstrap(ctx, b.store, b.index)
}

func (b *Basic) SearchEntities(ctx context.Context, queryText string, k int) ([]Scored[graph.Entity], error) {
	candidates := b.index.snapshot()
	queryVec, err := b.embedder.Embed(ctx, queryText)
	if err != nil {
		queryVec = nil // degrade to lexical-only scoring rather than failing the search
	}

	results := make([]Scored[graph.Entity], 0, len(candidates))
	for _, e := range candidates {
		score := lexicalScore(queryText, e.Name)
		if queryVec != nil {
			if nameVec, err := b.embedder.Embed(ctx, e.Name); err == nil {
				cos := embed.Cosine(queryVec, nameVec)
				score = clamp01(0.5*score + 0.5*clamp01(cos))
			}
		}
		if score > 0 {
			results = append(results, Scored[graph.Entity]{Item: e, Score: score})
		}
	}

	sortScoredDesc(results, func(e graph.Entity) string { return e.ID })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (b *Basic) ScoreRelations(ctx context.Context, queryText string, relations []graph.Relation) ([]Scored[graph.Relation], error) {
	queryVec, err := b.embedder.Embed(ctx, queryText)
	if err != nil {
		queryVec = nil
	}

	results := make([]Scored[graph.Relation], 0, len(relations))
	for _, r := range relations {
		score := lexicalScore(queryText, r.Type)
		if queryVec != nil {
			if typeVec, err := b.embedder.Embed(ctx, r.Type); err == nil {
				cos := embed.Cosine(queryVec, typeVec)
				score = clamp01(0.5*score + 0.5*clamp01(cos))
			}
		}
		results = append(results, Scored[graph.Relation]{Item: r, Score: score})
	}

	sortScoredDesc(results, relationKey)
	return results, nil
}

func (b *Basic) CosineSimilarity(ctx context.Context, queryText, text string) (float64, error) {
	a, err := b.embedder.Embed(ctx, queryText)
	if err != nil {
		return 0, err
	}
	v, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return 0, err
	}
	return embed.Cosine(a, v), nil
}

func (b *Basic) CosineSimilarities(ctx context.Context, queryText string, texts []string) ([]float64, error) {
	a, err := b.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}
	vecs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vecs))
	for i, v := range vecs {
		out[i] = embed.Cosine(a, v)
	}
	return out, nil
}
