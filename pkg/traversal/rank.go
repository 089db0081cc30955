package traversal

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/kadirpekel/graphreason/pkg/config"
	"github.com/kadirpekel/graphreason/pkg/reason"
)

// rankPaths reconstructs the maximal step chains recorded in st.Ctx,
// scores each with the weighted base/length/completeness/semantic
// formula, and returns at most MaxEvidences of them, highest score
// first.
func (e *Engine) rankPaths(ctx context.Context, st *State, weights config.ScoringWeights) ([]reason.ReasoningPath, error) {
	steps := st.Ctx.Path()
	chains := buildChains(steps)

	paths := make([]reason.ReasoningPath, 0, len(chains))
	for _, chain := range chains {
		base := 0.0
		for _, s := range chain {
			base += s.Confidence
		}
		if len(chain) > 0 {
			base /= float64(len(chain))
		}

		lengthTerm := 0.0
		if len(chain) > 0 {
			lengthTerm = 1 / math.Sqrt(float64(len(chain)))
		}

		completeness := completenessOf(chain)

		semantic, err := e.semanticRelevance(ctx, st.Question, chain)
		if err != nil {
			semantic = 0
		}

		final := weights.BaseWeight*base + weights.LengthWeight*lengthTerm + weights.CompletenessWeight*completeness + weights.SemanticWeight*semantic
		paths = append(paths, reason.NewReasoningPath(chain, clamp01(final)))
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i].FinalScore > paths[j].FinalScore })

	if len(paths) > st.Cfg.MaxEvidences {
		paths = paths[:st.Cfg.MaxEvidences]
	}
	return paths, nil
}

// buildChains groups a flat, depth-ordered step list into maximal
// continuous chains (target of step i == source of step i+1), the
// traversal engine's notion of a "path" once the frontier's DAG has
// been flattened into the shared reasoning context.
func buildChains(steps []reason.Step) [][]reason.Step {
	byDepth := map[int][]reason.Step{}
	for _, s := range steps {
		byDepth[s.Depth] = append(byDepth[s.Depth], s)
	}

	var chains [][]reason.Step
	for _, root := range byDepth[0] {
		chains = append(chains, extend([]reason.Step{root}, byDepth, 1))
	}
	if len(chains) == 0 && len(steps) > 0 {
		// No depth-0 roots (e.g. traversal started mid-chain): treat
		// every step as its own single-step chain rather than dropping
		// them from the ranking.
		for _, s := range steps {
			chains = append(chains, []reason.Step{s})
		}
	}
	return chains
}

func extend(chain []reason.Step, byDepth map[int][]reason.Step, nextDepth int) []reason.Step {
	last := chain[len(chain)-1]
	for _, candidate := range byDepth[nextDepth] {
		if candidate.Source == last.Target {
			return extend(append(chain, candidate), byDepth, nextDepth+1)
		}
	}
	return chain
}

// completenessOf is a simple structural completeness signal: chain
// length relative to three hops, 1/3 per step and capped at 1. No
// "this entity had no further relations" signal is stored, so a short
// chain that ends because the graph ends scores the same as one that
// was cut short.
func completenessOf(chain []reason.Step) float64 {
	if len(chain) == 0 {
		return 0
	}
	return clamp01(float64(len(chain)) / 3.0)
}

func (e *Engine) semanticRelevance(ctx context.Context, question string, chain []reason.Step) (float64, error) {
	if len(chain) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chain))
	for i, s := range chain {
		texts[i] = strings.Join([]string{s.Source, s.Relation, s.Target}, " ")
	}
	sims, err := e.searcher.CosineSimilarities(ctx, question, texts)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, v := range sims {
		sum += v
	}
	return sum / float64(len(sims)), nil
}
