package scheduler

import (
	"context"
	"testing"
	"time"
)

func noopTask(sessionID string, kind Kind, priority int, delay time.Duration, resultVal any, retErr error) *Task {
	return NewTask(sessionID, kind, priority, time.Second, nil, func(ctx *TaskRunContext) (any, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return resultVal, retErr
	})
}

func TestSubmitRunsTaskToCompletion(t *testing.T) {
	s := New(Config{CPUPoolSize: 1, IOPoolSize: 1})
	defer s.Shutdown()

	task := noopTask("s1", KindEntityIdentification, 0, 0, "done", nil)
	f, err := s.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.State != StateCompleted || done.Result != "done" {
		t.Fatalf("expected completed with result 'done', got state=%s result=%v", done.State, done.Result)
	}
}

func TestSubmitHonorsTimeoutWithoutRetry(t *testing.T) {
	s := New(Config{CPUPoolSize: 1, IOPoolSize: 1})
	defer s.Shutdown()

	task := NewTask("s1", KindLLMGeneration, 0, 20*time.Millisecond, nil, func(ctx *TaskRunContext) (any, error) {
		select {
		case <-time.After(time.Second):
			return "too slow", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	f, err := s.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, _ := f.Wait(context.Background())
	if done.State != StateFailed {
		t.Fatalf("expected failed state on timeout, got %s", done.State)
	}
	if done.Err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", done.Err)
	}
}

func TestPriorityOrderingWithinSinglePool(t *testing.T) {
	p := newPool(PoolCPU, 1)
	defer p.close()

	order := make(chan int, 3)
	block := make(chan struct{})

	// occupy the single worker so the next three submissions queue up
	blocker := NewTask("s", KindValidation, 0, time.Second, nil, func(ctx *TaskRunContext) (any, error) {
		<-block
		return nil, nil
	})
	blocker.mu.Lock()
	blocker.done = make(chan struct{})
	blocker.ctx = context.Background()
	blocker.mu.Unlock()
	p.submit(blocker)
	time.Sleep(20 * time.Millisecond)

	mk := func(priority, tag int) *Task {
		task := NewTask("s", KindValidation, priority, time.Second, nil, func(ctx *TaskRunContext) (any, error) {
			order <- tag
			return nil, nil
		})
		task.mu.Lock()
		task.done = make(chan struct{})
		task.ctx = context.Background()
		task.mu.Unlock()
		return task
	}
	p.submit(mk(1, 1))
	p.submit(mk(5, 2))
	p.submit(mk(3, 3))
	time.Sleep(20 * time.Millisecond)
	close(block)

	got := []int{<-order, <-order, <-order}
	want := []int{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected priority order %v, got %v", want, got)
		}
	}
}

func TestSubmitBatchPreservesOrder(t *testing.T) {
	s := New(Config{CPUPoolSize: 2, IOPoolSize: 2})
	defer s.Shutdown()

	tasks := []*Task{
		noopTask("s1", KindEntityIdentification, 0, 0, 1, nil),
		noopTask("s1", KindEntityIdentification, 0, 0, 2, nil),
		noopTask("s1", KindEntityIdentification, 0, 0, 3, nil),
	}
	futures, err := s.SubmitBatch(context.Background(), tasks)
	if err != nil {
		t.Fatalf("submit batch: %v", err)
	}
	results, err := WaitAll(context.Background(), futures)
	if err != nil {
		t.Fatalf("wait all: %v", err)
	}
	for i, r := range results {
		if r.Result != i+1 {
			t.Fatalf("expected result %d at index %d, got %v", i+1, i, r.Result)
		}
	}
}

func TestCancelStopsSessionTasks(t *testing.T) {
	s := New(Config{CPUPoolSize: 1, IOPoolSize: 1})
	defer s.Shutdown()

	task := NewTask("doomed", KindLLMGeneration, 0, time.Second, nil, func(ctx *TaskRunContext) (any, error) {
		select {
		case <-time.After(time.Second):
			return "ok", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	f, err := s.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	s.Cancel("doomed")

	done, _ := f.Wait(context.Background())
	if done.State != StateCancelled {
		t.Fatalf("expected cancelled state, got %s", done.State)
	}
}

func TestClassifyLevels(t *testing.T) {
	cases := []struct {
		value int
		want  Level
	}{
		{0, LevelLow},
		{10, LevelMedium},
		{25, LevelHigh},
		{60, LevelCritical},
	}
	for _, c := range cases {
		if got := classify(c.value, 5, 20, 50); got != c.want {
			t.Fatalf("classify(%d): expected %s, got %s", c.value, c.want, got)
		}
	}
}

func TestPickPoolRoutesByKind(t *testing.T) {
	s := New(Config{CPUPoolSize: 1, IOPoolSize: 1})
	defer s.Shutdown()

	if p := s.pickPool(KindGraphTraversal); p != s.cpu {
		t.Fatalf("expected graph_traversal on cpu pool")
	}
	if p := s.pickPool(KindDatabaseQuery); p != s.io {
		t.Fatalf("expected database_query on io pool under normal load")
	}
}
