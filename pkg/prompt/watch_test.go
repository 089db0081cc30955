package prompt

import (
	"context"
	"testing"
	"time"
)

func TestWatchReloadsChangedTemplate(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "live", "v1")
	r := NewRegistry(dir)

	if _, err := r.Get("live"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Watch(ctx) }()

	time.Sleep(50 * time.Millisecond) // let the watcher register before the write
	writeTemplate(t, dir, "live", "v2")

	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, cached := r.cache.Get("live"); !cached {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	got, err := r.Get("live")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "v2" {
		t.Fatalf("expected reloaded value v2, got %q", got)
	}

	cancel()
	<-errCh
}
