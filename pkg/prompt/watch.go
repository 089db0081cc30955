package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch watches the registry's template directory and drops a template's
// cache entry whenever its file is written or created, so the next
// Render/Get picks up the change without a process restart. Watch blocks
// until ctx is cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("prompt: watch directory %s: %w", r.dir, err)
	}

	// Debounce timers per file, so rapid successive writes (common with
	// editors that write-then-rename) collapse into a single reload.
	debounce := map[string]*time.Timer{}
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			for _, t := range debounce {
				t.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, isTemplate := templateName(event.Name)
			if !isTemplate {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if t, ok := debounce[name]; ok {
				t.Stop()
			}
			debounce[name] = time.AfterFunc(debounceDelay, func() {
				r.Reload(name)
				slog.Debug("prompt template reloaded", "name", name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prompt watcher error", "error", err)
		}
	}
}

func templateName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".txt") {
		return "", false
	}
	return strings.TrimSuffix(base, ".txt"), true
}
