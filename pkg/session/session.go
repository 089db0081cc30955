// Package session implements the schema-aware reasoner and the
// Engine/Session lifecycle API that wires it together with the rest of
// the core: schema inspector, search layer, traversal engine, prompt
// registry, LLM/embedder adapters, the planner and the task scheduler.
package session

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/graphreason/pkg/config"
	"github.com/kadirpekel/graphreason/pkg/embed"
	"github.com/kadirpekel/graphreason/pkg/graph"
	"github.com/kadirpekel/graphreason/pkg/prompt"
	"github.com/kadirpekel/graphreason/pkg/reason"
	"github.com/kadirpekel/graphreason/pkg/scheduler"
	"github.com/kadirpekel/graphreason/pkg/schema"
	"github.com/kadirpekel/graphreason/pkg/search"
)

// Engine bundles every dependency a reasoning session needs. One
// Engine is typically built per process and shared by many concurrent
// Sessions.
type Engine struct {
	Store     graph.Store
	LLM       embed.LLM
	Inspector *schema.Inspector
	Searcher  search.Searcher
	Prompts   *prompt.Registry
	Scheduler *scheduler.Scheduler
	Config    *config.ReasoningConfig
}

// NewEngine wires the given dependencies into an Engine. Callers are
// expected to have already called Searcher.Initialize.
func NewEngine(store graph.Store, llm embed.LLM, inspector *schema.Inspector, searcher search.Searcher, prompts *prompt.Registry, sched *scheduler.Scheduler, cfg *config.ReasoningConfig) *Engine {
	return &Engine{
		Store:     store,
		LLM:       llm,
		Inspector: inspector,
		Searcher:  searcher,
		Prompts:   prompts,
		Scheduler: sched,
		Config:    cfg,
	}
}

// Session is one question-answering conversation scope, identified by
// a session id that tags every task it submits to the scheduler so
// Cancel can stop them in bulk.
type Session struct {
	ID     string
	engine *Engine
}

// NewSession creates a Session bound to e.
func (e *Engine) NewSession() *Session {
	return &Session{ID: uuid.New().String(), engine: e}
}

// Ask runs the full reasoning pipeline for question, never returning
// an error to the caller: pipeline failures degrade to a basic,
// non-empty fallback result.
func (s *Session) Ask(ctx context.Context, question string) *reason.Result {
	return s.ask(ctx, question)
}

// AskBatch runs Ask for every question concurrently, preserving input
// order in the returned slice.
func (s *Session) AskBatch(ctx context.Context, questions []string) []*reason.Result {
	results := make([]*reason.Result, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			results[i] = s.ask(gctx, q)
			return nil
		})
	}
	_ = g.Wait() // ask never returns an error; Wait only propagates ctx cancellation
	return results
}

// Cancel stops every in-flight task tagged with this session.
func (s *Session) Cancel() {
	s.engine.Scheduler.Cancel(s.ID)
}

// Shutdown releases the engine's scheduler resources. Call once, after
// every session using this engine has finished.
func (e *Engine) Shutdown() {
	e.Scheduler.Shutdown()
}
