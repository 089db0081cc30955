// Package agents implements the multi-agent coordinator: a registry of
// named agents, each declaring which task kinds it can handle,
// dispatched to either one at a time or all at once.
package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is an agent's lifecycle state.
type State string

const (
	StateInitializing State = "initializing"
	StateReady         State = "ready"
	StateBusy          State = "busy"
	StateError         State = "error"
	StateShutdown      State = "shutdown"
)

// TaskRequest is one unit of work dispatched to an agent.
type TaskRequest struct {
	Kind        string
	Description string
	Context     map[string]any
}

// Result is an agent's outcome.
type Result struct {
	Success  bool
	Text     string
	Metadata map[string]any
	Error    string
	ElapsedMS int64
}

// ErrNoAgent is the sentinel surfaced when no ready agent can handle a
// requested kind.
var ErrNoAgent = fmt.Errorf("agents: no_agent_for_kind")

// Agent is a unit of specialized work the coordinator can dispatch to.
type Agent interface {
	// Name uniquely identifies this agent within a Coordinator.
	Name() string

	// CanHandle reports whether this agent handles kind, optionally
	// consulting description for finer-grained routing.
	CanHandle(kind, description string) bool

	// State reports the agent's current lifecycle state.
	State() State

	// Execute performs the task and returns its result. Execute is
	// only called while State() == StateReady.
	Execute(ctx context.Context, req TaskRequest) (Result, error)
}

// Coordinator registers agents and dispatches tasks to the first ready
// one that can handle a given kind.
type Coordinator struct {
	mu     sync.RWMutex
	agents []Agent
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Register adds an agent to the coordinator. Order of registration is
// the order agents are tried in ExecuteTask.
func (c *Coordinator) Register(a Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = append(c.agents, a)
}

// ExecuteTask selects the first ready agent that can handle kind and
// runs it, timing the call.
func (c *Coordinator) ExecuteTask(ctx context.Context, kind, description string, taskCtx map[string]any) Result {
	c.mu.RLock()
	var chosen Agent
	for _, a := range c.agents {
		if a.State() == StateReady && a.CanHandle(kind, description) {
			chosen = a
			break
		}
	}
	c.mu.RUnlock()

	if chosen == nil {
		return Result{Success: false, Error: ErrNoAgent.Error()}
	}

	start := time.Now()
	result, err := chosen.Execute(ctx, TaskRequest{Kind: kind, Description: description, Context: taskCtx})
	result.ElapsedMS = time.Since(start).Milliseconds()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
	}
	return result
}

// ExecuteTasksParallel dispatches every request concurrently and
// returns a same-keyed result map; a failing task is reported in place
// and never cancels its siblings.
func (c *Coordinator) ExecuteTasksParallel(ctx context.Context, requests map[string]TaskRequest) map[string]Result {
	results := make(map[string]Result, len(requests))
	var mu sync.Mutex

	g := new(errgroup.Group)
	for id, req := range requests {
		id, req := id, req
		g.Go(func() error {
			res := c.ExecuteTask(ctx, req.Kind, req.Description, req.Context)
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // ExecuteTask never returns an error to the errgroup; failures are in-place results

	return results
}
