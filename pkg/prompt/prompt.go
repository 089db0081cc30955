// Package prompt implements the prompt template registry: named
// templates loaded from a read-only asset directory, cached on first
// read, with single-pass {name} substitution and fsnotify-based hot
// reload.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/graphreason/pkg/registry"
)

// Registry loads and caches named prompt templates from a directory of
// "<name>.txt" files. The cache itself is a registry.BaseRegistry keyed
// by template name.
type Registry struct {
	dir   string
	cache *registry.BaseRegistry[string]
}

// NewRegistry creates a Registry rooted at dir. The directory need not
// exist yet; it is only read lazily on first Render/Get.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, cache: registry.NewBaseRegistry[string]()}
}

// Get returns the raw template text for name, reading and caching it on
// first access.
func (r *Registry) Get(name string) (string, error) {
	if tmpl, ok := r.cache.Get(name); ok {
		return tmpl, nil
	}

	path := filepath.Join(r.dir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt: load template %q: %w", name, err)
	}
	tmpl := string(data)

	// A concurrent first-read race is harmless: both loaders read the
	// same file, so only the registration itself needs to tolerate
	// losing the race against another goroutine.
	if err := r.cache.Register(name, tmpl); err != nil {
		if cached, ok := r.cache.Get(name); ok {
			return cached, nil
		}
	}
	return tmpl, nil
}

// Render loads template name and substitutes {key} tokens from values.
// Substitution is a single pass over the template text; a key present in
// the template but absent from values is replaced with the empty
// string, rather than erroring, so callers can render partially-filled
// templates.
func (r *Registry) Render(name string, values map[string]string) (string, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return Substitute(tmpl, values), nil
}

// Substitute performs the single-pass {key} replacement, exposed
// standalone so callers holding an already-loaded template string
// need not go through the registry.
func Substitute(tmpl string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	i := 0
	for i < len(tmpl) {
		if tmpl[i] != '{' {
			b.WriteByte(tmpl[i])
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			// Unterminated token: copy the rest verbatim.
			b.WriteString(tmpl[i:])
			break
		}
		key := tmpl[i+1 : i+1+end]
		b.WriteString(values[key]) // empty string for a missing key
		i = i + 1 + end + 1
	}
	return b.String()
}

// Reload drops the cache entry for name so the next Get/Render re-reads
// it from disk.
func (r *Registry) Reload(name string) {
	_ = r.cache.Remove(name)
}

// Clear drops all cached templates.
func (r *Registry) Clear() {
	r.cache.Clear()
}
