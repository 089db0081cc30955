package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/plan"
	"github.com/kadirpekel/graphreason/pkg/reason"
	"github.com/kadirpekel/graphreason/pkg/scheduler"
	"github.com/kadirpekel/graphreason/pkg/schema"
	"github.com/kadirpekel/graphreason/pkg/search"
	"github.com/kadirpekel/graphreason/pkg/traversal"
)

// ask runs the full schema-aware reasoning pipeline for one question,
// never returning a bare error to the caller: an empty question is
// rejected up front, and any later pipeline failure degrades to a
// non-empty fallback result instead of propagating. A permanently
// unavailable LLM only degrades the two calls that need it (entity
// extraction, answer generation); the question-side regex extraction,
// search and traversal stages run regardless and their evidence is
// preserved rather than discarded.
func (s *Session) ask(ctx context.Context, question string) *reason.Result {
	if strings.TrimSpace(question) == "" {
		return &reason.Result{
			Question:   question,
			Answer:     "the question was empty",
			InputError: true,
		}
	}

	sch, err := s.engine.Inspector.Schema(ctx)
	if err != nil {
		return s.basicAsk(question, fmt.Sprintf("schema unavailable: %v", err))
	}

	extractionPrompt, err := s.engine.Prompts.Render("entity-extraction", map[string]string{
		"node_types":     strings.Join(nodeTypeNames(sch), ", "),
		"relation_types": strings.Join(relationTypeNames(sch), ", "),
		"question":       question,
	})
	if err != nil {
		return s.basicAsk(question, fmt.Sprintf("render entity-extraction prompt: %v", err))
	}

	// A failed extraction call degrades to question-side-only entity
	// extraction rather than aborting the pipeline: extractQuestionEntities
	// below needs no LLM at all.
	extractionResp, err := s.runLLM(ctx, extractionPrompt, 0.1, s.engine.Config.LLMMaxTokens)
	if err != nil {
		extractionResp = ""
	}

	names := mergeUnique(ExtractQuoted(extractionResp), extractQuestionEntities(question, sch))
	intent := ExtractField(extractionResp, "INTENT")
	entities := inferEntities(names, question, sch, nil)

	queryPlan := buildQueryPlan(entities, s.engine.Config.SearchWidth, intent)
	strategyPlan := plan.Build(plan.PlanInput{
		Question:          question,
		Schema:            sch,
		EntityFamilyCount: countEntityFamilies(entities),
	})

	resolved, err := s.executeEntitySearches(ctx, queryPlan, strategyPlan.Strategy)
	if err != nil {
		return s.basicAsk(question, fmt.Sprintf("entity search failed: %v", err))
	}

	startIDs := resolvedIDs(resolved)
	runTraversal := hasTraversalStep(queryPlan) && len(startIDs) > 0
	runIndirect := hasRelationKeyword(question) && len(startIDs) >= 2

	steps, evidence, pathScores, confidence := s.gatherEvidence(ctx, question, startIDs, strategyPlan.Strategy, runTraversal, runIndirect)

	answerPrompt, err := s.engine.Prompts.Render("answer-generation", map[string]string{
		"question": question,
		"evidence": strings.Join(evidence, "\n"),
	})
	if err != nil {
		return s.basicAsk(question, fmt.Sprintf("render answer-generation prompt: %v", err))
	}

	answer, err := s.runLLM(ctx, answerPrompt, 0.2, s.engine.Config.LLMMaxTokens)
	if err != nil {
		return s.fallbackWithEvidence(question, fmt.Sprintf("answer generation call failed: %v", err), steps, evidence, confidence, pathScores)
	}

	return &reason.Result{
		Question:   question,
		Answer:     answer,
		Steps:      steps,
		Evidence:   evidence,
		Confidence: confidence,
		PathScores: pathScores,
	}
}

// basicAsk is the graceful-degradation path for failures upstream of
// any evidence gathering (schema unavailable, template render failure,
// search failure): a non-empty result with an explanatory answer and
// no path/evidence, since none was collected.
func (s *Session) basicAsk(question, why string) *reason.Result {
	return &reason.Result{
		Question:    question,
		Answer:      fmt.Sprintf("I could not complete full reasoning for %q: %s. Try rephrasing the question.", question, why),
		Fallback:    true,
		FallbackWhy: why,
	}
}

// fallbackWithEvidence degrades gracefully when only answer generation
// fails: the steps and evidence already gathered are kept intact and
// folded into a compact summary answer instead of being discarded.
func (s *Session) fallbackWithEvidence(question, why string, steps []reason.Step, evidence []string, confidence float64, pathScores []float64) *reason.Result {
	return &reason.Result{
		Question:    question,
		Answer:      summarizeEvidence(evidence),
		Steps:       steps,
		Evidence:    evidence,
		Confidence:  confidence,
		PathScores:  pathScores,
		Fallback:    true,
		FallbackWhy: why,
	}
}

// summarizeEvidence renders a compact, LLM-free answer from gathered
// evidence lines, used when answer generation itself is unavailable.
func summarizeEvidence(evidence []string) string {
	if len(evidence) == 0 {
		return "I could not generate an answer and gathered no supporting evidence. Try rephrasing the question."
	}
	return "I could not generate a full answer, but gathered this evidence: " + strings.Join(evidence, "; ")
}

// runLLM submits a generation call to the scheduler, retrying
// transient/rate-limited failures with backoff before the task is
// reported failed.
func (s *Session) runLLM(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	retryCfg := embed.RetryConfig{MaxRetries: s.engine.Config.MaxRetries}
	task := scheduler.NewTask(s.ID, scheduler.KindLLMGeneration, 0, s.engine.Config.SessionBudget, nil,
		func(runCtx *scheduler.TaskRunContext) (any, error) {
			var text string
			err := embed.WithRetry(runCtx, retryCfg, func(ctx context.Context) error {
				out, err := s.engine.LLM.Generate(ctx, prompt, temperature, maxTokens)
				if err != nil {
					return err
				}
				text = out
				return nil
			})
			return text, err
		})
	future, err := s.engine.Scheduler.Submit(ctx, task)
	if err != nil {
		return "", err
	}
	done, err := future.Wait(ctx)
	if err != nil {
		return "", err
	}
	if done.Err != nil {
		return "", done.Err
	}
	text, _ := done.Result.(string)
	return text, nil
}

// entitySearchResult pairs an extracted entity with its ranked search
// hits.
type entitySearchResult struct {
	entity  ExtractedEntity
	matches []search.Scored[graph.Entity]
}

// executeEntitySearches resolves every entity-search step in qp against
// the searcher. Under the sequential strategy each lookup runs one at a
// time; under parallel/adaptive they fan out as a scheduler batch, since
// independent entity families have no reason to wait on one another.
func (s *Session) executeEntitySearches(ctx context.Context, qp QueryPlan, strategy plan.Strategy) ([]entitySearchResult, error) {
	var entityTexts []ExtractedEntity
	for _, step := range qp.Steps {
		if step.Kind == PlanStepEntitySearch {
			entityTexts = append(entityTexts, step.Entity)
		}
	}

	if strategy == plan.StrategySequential {
		results := make([]entitySearchResult, len(entityTexts))
		for i, e := range entityTexts {
			matches, err := s.engine.Searcher.SearchEntities(ctx, e.Text, 10)
			if err != nil {
				return nil, err
			}
			results[i] = entitySearchResult{entity: e, matches: matches}
		}
		return results, nil
	}

	results := make([]entitySearchResult, len(entityTexts))
	tasks := make([]*scheduler.Task, len(entityTexts))
	for i, e := range entityTexts {
		i, e := i, e
		tasks[i] = scheduler.NewTask(s.ID, scheduler.KindEntityIdentification, 0, s.engine.Config.SessionBudget, nil,
			func(runCtx *scheduler.TaskRunContext) (any, error) {
				return s.engine.Searcher.SearchEntities(runCtx, e.Text, 10)
			})
	}

	futures, err := s.engine.Scheduler.SubmitBatch(ctx, tasks)
	if err != nil {
		return nil, err
	}
	done, err := scheduler.WaitAll(ctx, futures)
	if err != nil {
		return nil, err
	}
	for i, t := range done {
		matches, _ := t.Result.([]search.Scored[graph.Entity])
		results[i] = entitySearchResult{entity: entityTexts[i], matches: matches}
	}
	return results, nil
}

func (s *Session) executeTraversal(ctx context.Context, question string, startIDs []string) ([]reason.ReasoningPath, error) {
	task := scheduler.NewTask(s.ID, scheduler.KindGraphTraversal, 1, s.engine.Config.SessionBudget, nil,
		func(runCtx *scheduler.TaskRunContext) (any, error) {
			engine := traversal.New(s.engine.Store, s.engine.Searcher)
			st := traversal.NewState(question, startIDs, s.engine.Config)
			return engine.Run(runCtx, st)
		})
	future, err := s.engine.Scheduler.Submit(ctx, task)
	if err != nil {
		return nil, err
	}
	done, err := future.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if done.Err != nil {
		return nil, done.Err
	}
	paths, _ := done.Result.([]reason.ReasoningPath)
	return paths, nil
}

// gatherEvidence runs relationship traversal and indirect-connection
// discovery, dispatched according to strategy. The two stages share no
// data dependency beyond startIDs, so under parallel/adaptive they fan
// out together via an errgroup; under sequential they run one after
// the other, matching the question-is-short/schema-is-small case the
// planner reserves sequential for.
func (s *Session) gatherEvidence(ctx context.Context, question string, startIDs []string, strategy plan.Strategy, runTraversal, runIndirect bool) ([]reason.Step, []string, []float64, float64) {
	var steps []reason.Step
	var evidence []string
	var pathScores []float64
	var confidence float64

	collectPaths := func(paths []reason.ReasoningPath) {
		for _, p := range paths {
			steps = append(steps, p.Steps...)
			pathScores = append(pathScores, p.FinalScore)
			evidence = append(evidence, p.Description)
			confidence += p.FinalScore
		}
	}

	if strategy == plan.StrategySequential {
		if runTraversal {
			if paths, err := s.executeTraversal(ctx, question, startIDs); err == nil {
				collectPaths(paths)
			}
		}
		if runIndirect {
			evidence = append(evidence, s.indirectConnections(ctx, startIDs)...)
		}
		return steps, evidence, pathScores, confidence
	}

	var mu sync.Mutex
	var indirectEvidence []string
	g, gctx := errgroup.WithContext(ctx)
	if runTraversal {
		g.Go(func() error {
			paths, err := s.executeTraversal(gctx, question, startIDs)
			if err != nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			collectPaths(paths)
			return nil
		})
	}
	if runIndirect {
		g.Go(func() error {
			ev := s.indirectConnections(gctx, startIDs)
			mu.Lock()
			defer mu.Unlock()
			indirectEvidence = ev
			return nil
		})
	}
	_ = g.Wait() // both stages swallow their own errors; Wait only propagates ctx cancellation

	evidence = append(evidence, indirectEvidence...)
	return steps, evidence, pathScores, confidence
}

// indirectConnections runs bounded BFS shortest-path discovery between
// every unordered pair of startIDs. Each found path contributes two
// evidence lines: a "[Indirect Connection] A 与 C 通过 N 跳连接"
// hop-count summary, and a plain "A -> B -> C" path description.
func (s *Session) indirectConnections(ctx context.Context, startIDs []string) []string {
	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(startIDs); i++ {
		for j := i + 1; j < len(startIDs); j++ {
			pairs = append(pairs, pair{startIDs[i], startIDs[j]})
		}
	}

	found := make([][]string, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			steps, ok := shortestPath(gctx, s.engine.Store, p.a, p.b, 4)
			if !ok {
				return nil
			}
			found[i] = []string{
				"[Indirect Connection] " + hopSummary(gctx, s.engine.Store, p.a, p.b, len(steps)),
				describePath(gctx, s.engine.Store, steps, p.a),
			}
			return nil
		})
	}
	_ = g.Wait() // individual BFS errors are swallowed; a missing connection just isn't reported

	var out []string
	for _, lines := range found {
		out = append(out, lines...)
	}
	return out
}

func hasTraversalStep(qp QueryPlan) bool {
	for _, step := range qp.Steps {
		if step.Kind == PlanStepRelationshipTraversal {
			return true
		}
	}
	return false
}

// countEntityFamilies reports how many distinct entity types the
// extraction stage found, the planner's signal for "multiple
// independent entity families are mentioned".
func countEntityFamilies(entities []ExtractedEntity) int {
	families := map[string]bool{}
	for _, e := range entities {
		families[e.Type] = true
	}
	return len(families)
}

func resolvedIDs(results []entitySearchResult) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range results {
		if len(r.matches) == 0 {
			continue
		}
		id := r.matches[0].Item.ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func mergeUnique(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func nodeTypeNames(s *schema.GraphSchema) []string {
	names := make([]string, 0, len(s.NodeTypes))
	for name := range s.NodeTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func relationTypeNames(s *schema.GraphSchema) []string {
	names := make([]string, 0, len(s.RelationshipTypes))
	for name := range s.RelationshipTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
