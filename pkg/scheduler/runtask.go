package scheduler

import (
	"context"
	"errors"
	"time"
)

// runTask executes a single task to completion on behalf of a pool
// worker. It does not recover panics: a Run function that panics
// brings down the worker goroutine and with it the process; runTask
// itself only handles the error paths Run can return.
func runTask(t *Task, poolName PoolName) {
	t.mu.Lock()
	t.State = StateRunning
	t.StartedAt = time.Now()
	base := t.ctx
	if base == nil {
		base = context.Background()
	}
	t.mu.Unlock()

	runCtx := base
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(base, t.Timeout)
		defer cancel()
	}

	result, err := t.Run(&TaskRunContext{Context: runCtx, Pool: poolName})

	switch {
	case err == nil:
		t.setState(StateCompleted, result, nil)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		t.setState(StateFailed, nil, ErrTimeout)
	case errors.Is(runCtx.Err(), context.Canceled):
		t.setState(StateCancelled, nil, runCtx.Err())
	default:
		t.setState(StateFailed, nil, err)
	}

	if t.done != nil {
		close(t.done)
	}
}
