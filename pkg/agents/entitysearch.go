package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/search"
)

// EntitySearchAgent wraps the search layer for the coordinator:
// {entity_search, entity_identification, semantic_search}.
type EntitySearchAgent struct {
	searcher search.Searcher
}

// NewEntitySearchAgent creates an EntitySearchAgent over searcher.
func NewEntitySearchAgent(searcher search.Searcher) *EntitySearchAgent {
	return &EntitySearchAgent{searcher: searcher}
}

func (a *EntitySearchAgent) Name() string { return "entity-search" }

func (a *EntitySearchAgent) CanHandle(kind, _ string) bool {
	switch kind {
	case "entity_search", "entity_identification", "semantic_search":
		return true
	}
	return false
}

func (a *EntitySearchAgent) State() State { return StateReady }

func (a *EntitySearchAgent) Execute(ctx context.Context, req TaskRequest) (Result, error) {
	switch req.Kind {
	case "entity_search":
		return a.search(ctx, req.Description)
	case "entity_identification":
		return a.identify(ctx, req.Description)
	case "semantic_search":
		return a.semantic(ctx, req.Description, req.Context)
	default:
		return Result{}, fmt.Errorf("entity-search agent: unsupported kind %q", req.Kind)
	}
}

func (a *EntitySearchAgent) search(ctx context.Context, description string) (Result, error) {
	matches, err := a.searcher.SearchEntities(ctx, description, 10)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Text: describeMatches(matches), Metadata: map[string]any{"matches": matches}}, nil
}

// identify tokenizes description on whitespace/punctuation and runs a
// search per token, deduplicating by entity id and keeping the max
// score.
func (a *EntitySearchAgent) identify(ctx context.Context, description string) (Result, error) {
	tokens := tokenizeDescription(description)
	best := map[string]search.Scored[graph.Entity]{}
	for _, tok := range tokens {
		matches, err := a.searcher.SearchEntities(ctx, tok, 5)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if cur, ok := best[m.Item.ID]; !ok || m.Score > cur.Score {
				best[m.Item.ID] = m
			}
		}
	}
	matches := make([]search.Scored[graph.Entity], 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	return Result{Success: true, Text: describeMatches(matches), Metadata: map[string]any{"matches": matches}}, nil
}

// semantic runs a plain search and filters the matches by a "threshold"
// key read from the task context.
func (a *EntitySearchAgent) semantic(ctx context.Context, description string, taskCtx map[string]any) (Result, error) {
	matches, err := a.searcher.SearchEntities(ctx, description, 10)
	if err != nil {
		return Result{}, err
	}
	threshold := 0.0
	if v, ok := taskCtx["threshold"].(float64); ok {
		threshold = v
	}
	filtered := matches[:0:0]
	for _, m := range matches {
		if m.Score >= threshold {
			filtered = append(filtered, m)
		}
	}
	return Result{Success: true, Text: describeMatches(filtered), Metadata: map[string]any{"matches": filtered}}, nil
}

func describeMatches(matches []search.Scored[graph.Entity]) string {
	if len(matches) == 0 {
		return "no matching entities found"
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%.2f)", m.Item.Name, m.Score)
	}
	return b.String()
}

func tokenizeDescription(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
}
