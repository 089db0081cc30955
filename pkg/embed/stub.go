package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StubEmbedder is a deterministic Embedder for tests: the vector for a
// given text is derived from a simple hash of its characters, so the
// same text always yields the same vector, without any external dependency.
type StubEmbedder struct {
	dim int
}

// NewStubEmbedder creates a deterministic stub of the given dimension.
func NewStubEmbedder(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &StubEmbedder{dim: dim}
}

func (s *StubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	seed := fnv32(text)
	for i := range vec {
		// A simple deterministic pseudo-random walk seeded by the text
		// and the output index, so distinct texts disperse in vector
		// space while remaining perfectly reproducible.
		seed = seed*1664525 + uint32(i) + 1013904223
		vec[i] = float32(seed%2000)/1000.0 - 1.0
	}
	return vec, nil
}

func (s *StubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *StubEmbedder) Dimension() int { return s.dim }

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// StubLLM is a deterministic LLM for tests. It echoes the supplied
// canned response for a given prompt substring, or falls back to a
// fixed reply stating the prompt's length if no canned match is found, so seed scenarios
// can assert on exact output without a live model.
type StubLLM struct {
	mu        sync.Mutex
	responses []cannedResponse
	available bool
	calls     int
}

type cannedResponse struct {
	match    string
	response string
}

// NewStubLLM creates an available stub LLM with no canned responses.
func NewStubLLM() *StubLLM {
	return &StubLLM{available: true}
}

// WhenPromptContains registers a canned response returned whenever a
// future prompt contains match. Later registrations take precedence
// over earlier ones with the same match.
func (s *StubLLM) WhenPromptContains(match, response string) *StubLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, cannedResponse{match: match, response: response})
	return s
}

// SetAvailable toggles the Available() result, to exercise the
// "LLM adapter permanently unavailable" fallback path.
func (s *StubLLM) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

func (s *StubLLM) Generate(_ context.Context, prompt string, _ float64, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !s.available {
		return "", fmt.Errorf("%w: stub LLM marked unavailable", ErrPermanent)
	}
	for i := len(s.responses) - 1; i >= 0; i-- {
		if strings.Contains(prompt, s.responses[i].match) {
			return s.responses[i].response, nil
		}
	}
	return fmt.Sprintf("stub answer for prompt of length %d", len(prompt)), nil
}

func (s *StubLLM) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// CallCount returns how many times Generate has been invoked.
func (s *StubLLM) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
