// Package traversal implements the multi-hop traversal engine:
// breadth-first frontier expansion over the graph store, scored
// against the question by the search layer, with a depth penalty, a
// novelty bonus, and a small set of global stop conditions.
package traversal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/graphreason/pkg/config"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/reason"
	"github.com/kadirpekel/graphreason/pkg/search"
)

// State is the traversal's working memory for one question: start
// entities, per-depth frontier, visited set and exploration counts all
// live in the embedded *reason.Context, which the traversal engine
// shares with the rest of the reasoning pipeline so evidence
// accumulates in one place.
type State struct {
	Question string
	Ctx      *reason.Context
	Cfg      *config.ReasoningConfig
}

// NewState creates a fresh traversal state seeded with startIDs at
// depth 0.
func NewState(question string, startIDs []string, cfg *config.ReasoningConfig) *State {
	ctx := reason.NewContext(question, cfg.SessionBudget, cfg.EvidenceThresholds)
	ctx.AddEntities(0, startIDs)
	return &State{Question: question, Ctx: ctx, Cfg: cfg}
}

// Engine runs the frontier-expansion algorithm against a graph store
// and a search layer.
type Engine struct {
	store    graph.Store
	searcher search.Searcher
}

// New builds a traversal Engine over store, scoring candidates with
// searcher.
func New(store graph.Store, searcher search.Searcher) *Engine {
	return &Engine{store: store, searcher: searcher}
}

// Run expands st's frontier depth by depth until a stop condition
// fires, then returns the top-ranked reasoning paths, bounded by
// MaxEvidences.
func (e *Engine) Run(ctx context.Context, st *State) ([]reason.ReasoningPath, error) {
	weights := st.Cfg.ScoringWeights
	thresholds := st.Cfg.EvidenceThresholds

	var firstPathAt time.Time
	highScoreCount := 0

	for depth := 0; ; depth++ {
		if st.Ctx.ShouldStop(st.Cfg.MaxReasoningDepth, st.Cfg.MaxEntities) {
			break
		}
		if !firstPathAt.IsZero() && time.Since(firstPathAt) > thresholds.FoundPathSoftTimeout {
			break
		}

		frontier := st.Ctx.Frontier(depth)
		if len(frontier) == 0 {
			break
		}

		stepsFound, err := e.expandDepth(ctx, st, frontier, depth, weights)
		if err != nil {
			return nil, fmt.Errorf("traversal: expand depth %d: %w", depth, err)
		}
		if len(stepsFound) == 0 {
			break
		}
		if firstPathAt.IsZero() {
			firstPathAt = time.Now()
		}
		for _, step := range stepsFound {
			if step.Score > thresholds.HighScoreThreshold {
				highScoreCount++
			}
		}
		if highScoreCount >= thresholds.HighScorePathCount {
			break
		}
	}

	return e.rankPaths(ctx, st, weights)
}

// expandDepth performs one round of frontier expansion at depth, in
// parallel across the frontier's entities, mirroring the fan-out
// pattern used elsewhere in the codebase for independent, concurrent
// sub-work.
func (e *Engine) expandDepth(ctx context.Context, st *State, frontier []string, depth int, weights config.ScoringWeights) ([]reason.Step, error) {
	type stepResult struct {
		steps []reason.Step
	}
	results := make([]stepResult, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	for i, entityID := range frontier {
		i, entityID := i, entityID
		if st.Ctx.VisitCount(entityID) > 1 {
			// Already expanded earlier (e.g. reached via two relations);
			// AddEntities increments the counter on every discovery, so a
			// count above 1 means this isn't the entity's first visit.
			continue
		}
		g.Go(func() error {
			steps, err := e.expandOne(gctx, st, entityID, depth, weights)
			if err != nil {
				return err
			}
			results[i] = stepResult{steps: steps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []reason.Step
	for _, r := range results {
		all = append(all, r.steps...)
	}
	return all, nil
}

func (e *Engine) expandOne(ctx context.Context, st *State, entityID string, depth int, weights config.ScoringWeights) ([]reason.Step, error) {
	source, err := e.store.FindEntity(ctx, entityID)
	if err != nil {
		// A dangling or since-removed entity is dropped; the traversal
		// continues with whatever else is in the frontier.
		return nil, nil
	}

	relations, err := e.store.EntityRelations(ctx, entityID)
	if err != nil {
		return nil, nil
	}

	scored, err := e.searcher.ScoreRelations(ctx, st.Question, relations)
	if err != nil {
		return nil, nil
	}

	sourceRelevance, _ := e.searcher.CosineSimilarity(ctx, st.Question, source.Name)

	width := st.Cfg.SearchWidth
	var steps []reason.Step
	kept := 0
	for _, sr := range scored {
		if kept >= width {
			break
		}
		if sr.Score <= st.Cfg.RelationSimilarityThreshold {
			continue
		}
		kept++

		targetID := sr.Item.Other(entityID)
		unvisited := st.Ctx.VisitCount(targetID) == 0

		targetName := targetID
		if target, err := e.store.FindEntity(ctx, targetID); err == nil {
			targetName = target.Name
		}
		targetRelevance, _ := e.searcher.CosineSimilarity(ctx, st.Question, targetName)

		pathScore := (weights.RelWeight*sr.Score + weights.SourceWeight*sourceRelevance + weights.TargetWeight*targetRelevance) * math.Pow(weights.DepthDecay, float64(depth))
		if unvisited {
			pathScore += weights.NoveltyBonus
		}
		pathScore = clamp01(pathScore)

		step := st.Ctx.AddReasoningStep(source.Name, sr.Item.Type, targetName, pathScore, depth, rationale(sr.Item.Type))
		steps = append(steps, step)

		if unvisited {
			st.Ctx.AddEntities(depth+1, []string{targetID})
		}
	}
	return steps, nil
}

// rationale produces a short templated explanation off the relation
// type's keywords.
func rationale(relationType string) string {
	t := strings.ToLower(relationType)
	switch {
	case strings.Contains(t, "born") || strings.Contains(t, "birth"):
		return "connects through a birth relationship"
	case strings.Contains(t, "develop") || strings.Contains(t, "create"):
		return "connects through a creation relationship"
	case strings.Contains(t, "work") || strings.Contains(t, "employ"):
		return "connects through a working relationship"
	default:
		return fmt.Sprintf("connects via %s", relationType)
	}
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
