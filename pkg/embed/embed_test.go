package embed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCosineIdenticalVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := Cosine(a, a); got < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %v", got)
	}
}

func TestCosineOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := Cosine(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineMismatchedLength(t *testing.T) {
	if got := Cosine([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched length, got %v", got)
	}
}

// TestEmbeddingCacheByteEqualAcrossHitAndMiss checks the round-trip
// law: a cache hit and miss for the same text return bit-equal
// vectors.
func TestEmbeddingCacheByteEqualAcrossHitAndMiss(t *testing.T) {
	stub := NewStubEmbedder(4)
	cache, err := NewEmbeddingCache(stub, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	miss, err := cache.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hit, err := cache.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(miss) != len(hit) {
		t.Fatalf("length mismatch")
	}
	for i := range miss {
		if miss[i] != hit[i] {
			t.Fatalf("vectors diverged at index %d: %v vs %v", i, miss[i], hit[i])
		}
	}
}

// countingEmbedder counts how many times Embed is actually invoked, to
// verify the cache's single-flight/memoization behavior.
type countingEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
	dim   int
}

func newCountingEmbedder(dim int) *countingEmbedder {
	return &countingEmbedder{calls: map[string]int{}, dim: dim}
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls[text]++
	c.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := c.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int { return c.dim }

func TestEmbeddingCacheComputesOncePerKey(t *testing.T) {
	inner := newCountingEmbedder(1)
	cache, err := NewEmbeddingCache(inner, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Embed(context.Background(), "same text")
		}()
	}
	wg.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if inner.calls["same text"] != 1 {
		t.Fatalf("expected exactly 1 underlying compute, got %d", inner.calls["same text"])
	}
}

func TestWithRetryRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return ErrTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryPermanentFailsImmediately(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("boom: %w", ErrPermanent)
	})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for permanent error, got %d", attempts)
	}
}

func TestWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return ErrTransient
	})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient after exhausting retries, got %v", err)
	}
	if attempts != 3 { // initial + 2 retries
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestStubLLMUnavailableReturnsPermanent(t *testing.T) {
	llm := NewStubLLM()
	llm.SetAvailable(false)

	_, err := llm.Generate(context.Background(), "anything", 0.2, 100)
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestStubLLMCannedResponse(t *testing.T) {
	llm := NewStubLLM().WhenPromptContains("Einstein", "Einstein developed the theory")
	got, err := llm.Generate(context.Background(), "Who is Einstein?", 0.1, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Einstein developed the theory" {
		t.Fatalf("got %q", got)
	}
}
