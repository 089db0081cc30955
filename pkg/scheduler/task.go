// Package scheduler implements the task scheduler and resource monitor
//: two logical executor pools (CPU, I/O), a
// priority-ordered FIFO submission queue per pool, a load-sampling
// resource monitor, and session-scoped cancellation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Kind is a typed unit of work.
type Kind string

const (
	KindEntityIdentification Kind = "entity_identification"
	KindRelationExploration  Kind = "relation_exploration"
	KindSimilarityCalc       Kind = "similarity_calculation"
	KindEvidenceCollection   Kind = "evidence_collection"
	KindAnswerGeneration     Kind = "answer_generation"
	KindValidation           Kind = "validation"
	KindGraphTraversal       Kind = "graph_traversal"
	KindPathScoring          Kind = "path_scoring"
	KindResultAggregation    Kind = "result_aggregation"
	KindLLMGeneration        Kind = "llm_generation"
	KindDatabaseQuery        Kind = "database_query"
	KindEmbeddingCalculation Kind = "embedding_calculation"
)

// State is a task's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether state has no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// ErrTimeout marks a task that was failed by the scheduler after its
// wall-clock timeout elapsed. The scheduler does not automatically
// retry a timed-out task — that decision is left to the caller.
var ErrTimeout = fmt.Errorf("scheduler: task timeout")

// ErrNoAgent marks a task that could not be matched to a ready agent.
var ErrNoAgent = fmt.Errorf("scheduler: no agent for kind")

// Task is a unit of work submitted to the scheduler.
type Task struct {
	ID        string
	SessionID string
	Kind      Kind
	Priority  int
	Timeout   time.Duration
	Context   map[string]any

	State   State
	Err     error
	Result  any

	SubmittedAt time.Time
	StartedAt   time.Time
	EndedAt     time.Time

	Run func(ctx *TaskRunContext) (any, error)

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// setState transitions the task's state under its own mutex, so a
// worker goroutine and a cancelling caller can't race on the same
// task's bookkeeping.
func (t *Task) setState(s State, result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.State = s
	t.Result = result
	t.Err = err
	t.EndedAt = time.Now()
}

func (t *Task) getState() (State, any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State, t.Result, t.Err
}

// NewTask creates a pending Task with a generated ID.
func NewTask(sessionID string, kind Kind, priority int, timeout time.Duration, taskContext map[string]any, run func(ctx *TaskRunContext) (any, error)) *Task {
	return &Task{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Kind:        kind,
		Priority:    priority,
		Timeout:     timeout,
		Context:     taskContext,
		State:       StatePending,
		SubmittedAt: time.Now(),
		Run:         run,
	}
}

// DecodeContext decodes t.Context into out using mapstructure, with
// weakly-typed input and a duration-string hook, so a caller can accept
// e.g. `{"max_depth": "3", "timeout": "5s"}` from a config-sourced map
// matching the config loader's decoding convention.
func (t *Task) DecodeContext(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("scheduler: build context decoder: %w", err)
	}
	return decoder.Decode(t.Context)
}
