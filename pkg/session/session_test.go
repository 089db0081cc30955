package session

import (
	"context"
	"testing"
	"time"

	"github.com/kadirpekel/graphreason/pkg/config"
	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/prompt"
	"github.com/kadirpekel/graphreason/pkg/scheduler"
	"github.com/kadirpekel/graphreason/pkg/schema"
	"github.com/kadirpekel/graphreason/pkg/search"
)

func fixtureEngine(t *testing.T, llm embed.LLM) *Engine {
	t.Helper()
	store := graph.NewMemStore()
	store.AddEntity(graph.Entity{ID: "e1", Name: "Marie Curie", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "e2", Name: "Pierre Curie", Type: "Person"})
	store.AddEntity(graph.Entity{ID: "e3", Name: "Radium", Type: "Element"})
	store.AddRelation(graph.Relation{SourceID: "e1", TargetID: "e2", Type: "married_to"})
	store.AddRelation(graph.Relation{SourceID: "e1", TargetID: "e3", Type: "discovered"})

	embedder := embed.NewStubEmbedder(16)
	searcher := search.NewBasic(store, embedder)
	if err := searcher.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize searcher: %v", err)
	}

	inspector := schema.NewInspector(store, time.Minute, 5)
	prompts := prompt.NewRegistry("../../prompts")
	sched := scheduler.New(scheduler.Config{CPUPoolSize: 2, IOPoolSize: 2})
	t.Cleanup(sched.Shutdown)

	cfg := config.Default()
	cfg.RelationSimilarityThreshold = 0
	cfg.SessionBudget = 5 * time.Second

	return NewEngine(store, llm, inspector, searcher, prompts, sched, cfg)
}

func TestAskReturnsAnswerWithEvidence(t *testing.T) {
	llm := embed.NewStubLLM().
		WhenPromptContains("entities and relationship types", `"Marie Curie" "Radium"`+"\nRELATION: discovered").
		WhenPromptContains("Answer the question", "Marie Curie discovered radium.")
	engine := fixtureEngine(t, llm)
	session := engine.NewSession()

	result := session.Ask(context.Background(), "who discovered Radium")
	if result.Fallback {
		t.Fatalf("expected non-fallback result, got fallback: %s", result.FallbackWhy)
	}
	if result.Answer == "" {
		t.Fatalf("expected non-empty answer")
	}
	if len(result.Evidence) == 0 {
		t.Fatalf("expected the answer to come with gathered evidence, got none")
	}
}

func TestAskFallsBackWhenLLMUnavailable(t *testing.T) {
	llm := embed.NewStubLLM()
	llm.SetAvailable(false)
	engine := fixtureEngine(t, llm)
	session := engine.NewSession()

	result := session.Ask(context.Background(), "who discovered Radium")
	if !result.Fallback {
		t.Fatalf("expected fallback result when LLM unavailable")
	}
	if result.Answer == "" {
		t.Fatalf("expected non-empty fallback answer")
	}
	// Extraction and answer generation both need the LLM and degrade,
	// but question-side extraction, search and traversal don't — their
	// evidence must survive into the fallback result rather than being
	// discarded.
	if len(result.Evidence) == 0 {
		t.Fatalf("expected evidence gathered without the LLM to be preserved, got none")
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	engine := fixtureEngine(t, embed.NewStubLLM())
	session := engine.NewSession()

	result := session.Ask(context.Background(), "   ")
	if !result.InputError {
		t.Fatalf("expected InputError for an empty question")
	}
	if result.Answer == "" {
		t.Fatalf("expected a non-empty explanatory answer")
	}
}

func TestAskBatchPreservesOrder(t *testing.T) {
	llm := embed.NewStubLLM()
	engine := fixtureEngine(t, llm)
	session := engine.NewSession()

	questions := []string{"who is Marie Curie", "what did Marie Curie discover", "who is Pierre Curie"}
	results := session.AskBatch(context.Background(), questions)
	if len(results) != len(questions) {
		t.Fatalf("expected %d results, got %d", len(questions), len(results))
	}
	for i, r := range results {
		if r.Question != questions[i] {
			t.Fatalf("expected result %d for question %q, got %q", i, questions[i], r.Question)
		}
	}
}

func TestCancelStopsSessionTasks(t *testing.T) {
	llm := embed.NewStubLLM()
	engine := fixtureEngine(t, llm)
	session := engine.NewSession()
	session.Cancel() // no in-flight tasks; must be a safe no-op
}

func TestExtractQuotedAndField(t *testing.T) {
	text := "\"Marie Curie\" 'Pierre Curie'\nRELATION: married_to\nINTENT: lookup"
	quoted := ExtractQuoted(text)
	if len(quoted) != 2 || quoted[0] != "Marie Curie" || quoted[1] != "Pierre Curie" {
		t.Fatalf("unexpected quoted extraction: %v", quoted)
	}
	if got := ExtractField(text, "relation"); got != "married_to" {
		t.Fatalf("expected married_to, got %q", got)
	}
	if got := ExtractField(text, "intent"); got != "lookup" {
		t.Fatalf("expected lookup, got %q", got)
	}
	if got := ExtractField(text, "missing"); got != "" {
		t.Fatalf("expected empty string for missing field, got %q", got)
	}
}
