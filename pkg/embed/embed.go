// Package embed defines the narrow embedding and LLM contracts the
// reasoning core consumes, plus the bounded LRU cache and retry
// wrapper every adapter is required to provide.
package embed

import (
	"context"
	"errors"
	"math"
)

// Embedder turns text into fixed-dimension vectors. Implementations
// must cache by exact text key with an LRU of bounded size: a cache
// hit and a cache miss for the same input must return bit-equal
// vectors across the session.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vectors in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the fixed vector width this adapter advertises.
	Dimension() int
}

// LLM is the contract the core consumes from a large-language-model
// provider: a single generate call, nothing more. The
// core never parses the result as strict JSON; see ExtractQuoted and
// ExtractField in pkg/session for the tolerant key/value extraction it
// performs instead.
type LLM interface {
	// Generate produces text from prompt at the given temperature
	// ([0,2]) bounded to maxTokens.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

	// Available reports whether the provider can currently be reached.
	Available() bool
}

// Error kinds an adapter call may fail with.
var (
	// ErrTransient covers rate limits and network blips; retry up to
	// maxRetries with exponential backoff.
	ErrTransient = errors.New("embed: transient adapter error")

	// ErrRateLimited is a specific transient error requesting a
	// longer backoff than a generic transient failure.
	ErrRateLimited = errors.New("embed: rate limited")

	// ErrPermanent fails only the current step, no retry.
	ErrPermanent = errors.New("embed: permanent adapter error")
)

// Cosine computes cosine similarity in [-1, 1]. Vectors of unequal
// length or with a zero norm yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
