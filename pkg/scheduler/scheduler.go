package scheduler

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Scheduler dispatches tasks onto the CPU and I/O pools, choosing an
// executor per load-aware decision table, and tracks
// in-flight tasks per session so a session can be cancelled in bulk.
type Scheduler struct {
	cpu     *pool
	io      *pool
	monitor *Monitor

	stop chan struct{}

	mu       sync.Mutex
	sessions map[string]map[string]*Task // sessionID -> taskID -> task
}

// Config controls pool sizing; zero values fall back to sane defaults.
type Config struct {
	CPUPoolSize int
	IOPoolSize  int
}

// New builds a Scheduler with the given pool sizes and starts its
// resource monitor.
func New(cfg Config) *Scheduler {
	if cfg.CPUPoolSize <= 0 {
		cfg.CPUPoolSize = 4
	}
	if cfg.IOPoolSize <= 0 {
		cfg.IOPoolSize = 8
	}
	s := &Scheduler{
		cpu:      newPool(PoolCPU, cfg.CPUPoolSize),
		io:       newPool(PoolIO, cfg.IOPoolSize),
		stop:     make(chan struct{}),
		sessions: make(map[string]map[string]*Task),
	}
	s.monitor = NewMonitor(0, MonitorThresholds{}, func() int { return s.io.Load() })
	go s.monitor.Run(s.stop)
	return s
}

// pickPool selects which pool a task kind should run on, given current
// load.
func (s *Scheduler) pickPool(kind Kind) *pool {
	load := s.monitor.Latest()

	switch kind {
	case KindDatabaseQuery, KindEmbeddingCalculation:
		if load.IOLevel == LevelHigh || load.IOLevel == LevelCritical {
			return s.cpu
		}
		return s.io
	case KindGraphTraversal, KindPathScoring, KindResultAggregation, KindSimilarityCalc, KindRelationExploration:
		return s.cpu
	case KindLLMGeneration:
		if load.CPULevel == LevelHigh || load.CPULevel == LevelCritical {
			return s.io
		}
		if load.IOLevel == LevelHigh || load.IOLevel == LevelCritical {
			return s.cpu
		}
		if s.io.Load() <= s.cpu.Load() {
			return s.io
		}
		return s.cpu
	default:
		if s.cpu.Load() <= s.io.Load() {
			return s.cpu
		}
		return s.io
	}
}

// Future is a handle to a submitted Task's eventual outcome.
type Future struct {
	task *Task
}

// Wait blocks until the task reaches a terminal state or ctx is done,
// whichever comes first. A task whose own context is cancelled reaches
// its terminal state once its Run function returns.
func (f *Future) Wait(ctx context.Context) (*Task, error) {
	select {
	case <-f.task.done:
		return f.task, nil
	case <-ctx.Done():
		return f.task, ctx.Err()
	}
}

// Task exposes the underlying task for inspection without waiting.
func (f *Future) Task() *Task { return f.task }

// Submit enqueues a task on the pool chosen for its kind and registers
// it under its session for later cancellation.
func (s *Scheduler) Submit(ctx context.Context, t *Task) (*Future, error) {
	if t.Run == nil {
		return nil, fmt.Errorf("scheduler: task %s has no Run function", t.ID)
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.ctx = runCtx
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	s.mu.Lock()
	if s.sessions[t.SessionID] == nil {
		s.sessions[t.SessionID] = make(map[string]*Task)
	}
	s.sessions[t.SessionID][t.ID] = t
	s.mu.Unlock()

	p := s.pickPool(t.Kind)
	p.submit(t)
	go s.reapWhenDone(t)
	return &Future{task: t}, nil
}

// reapWhenDone removes a completed task from its session's registry so
// long-lived sessions don't accumulate unbounded finished-task entries.
func (s *Scheduler) reapWhenDone(t *Task) {
	<-t.done
	s.mu.Lock()
	if m, ok := s.sessions[t.SessionID]; ok {
		delete(m, t.ID)
		if len(m) == 0 {
			delete(s.sessions, t.SessionID)
		}
	}
	s.mu.Unlock()
}

// SubmitBatch submits every task and returns futures in the same order
// as the input slice.
func (s *Scheduler) SubmitBatch(ctx context.Context, tasks []*Task) ([]*Future, error) {
	futures := make([]*Future, len(tasks))
	for i, t := range tasks {
		f, err := s.Submit(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("scheduler: submit batch item %d: %w", i, err)
		}
		futures[i] = f
	}
	return futures, nil
}

// WaitAll waits for every future concurrently, returning the first
// error encountered (if any) via an errgroup-based fan-out over a
// batch of independent results.
func WaitAll(ctx context.Context, futures []*Future) ([]*Task, error) {
	results := make([]*Task, len(futures))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		i, f := i, f
		g.Go(func() error {
			task, err := f.Wait(gctx)
			results[i] = task
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Cancel cancels every in-flight task tagged with sessionID and clears
// the session's registry entry.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	tasks := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	for _, t := range tasks {
		t.mu.Lock()
		cancel := t.cancel
		t.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
}

// Load reports the current depth of each pool, for diagnostics.
func (s *Scheduler) Load() (cpu, io int) {
	return s.cpu.Load(), s.io.Load()
}

// Shutdown stops the resource monitor and closes both pools, letting
// in-flight tasks drain before their workers exit.
func (s *Scheduler) Shutdown() {
	close(s.stop)
	s.cpu.close()
	s.io.close()
}
