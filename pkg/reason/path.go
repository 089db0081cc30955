package reason

import (
	"fmt"
	"strings"
)

// ReasoningPath is an ordered chain of steps with a derived final score
// and a human-readable description. Valid iff every step is
// individually valid and each step's target matches the next step's
// source.
type ReasoningPath struct {
	Steps       []Step
	FinalScore  float64
	Description string
}

// NewReasoningPath builds a ReasoningPath from steps, computing its
// description. It does not validate continuity; callers should check
// Valid() before trusting the path.
func NewReasoningPath(steps []Step, finalScore float64) ReasoningPath {
	return ReasoningPath{
		Steps:       steps,
		FinalScore:  finalScore,
		Description: describe(steps),
	}
}

func describe(steps []Step) string {
	if len(steps) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(steps[0].Source)
	for _, s := range steps {
		fmt.Fprintf(&b, " -[%s]-> %s", s.Relation, s.Target)
	}
	return b.String()
}

// Valid reports whether every step in the path is individually
// well-formed and the chain is continuous: the target of step i equals
// the source of step i+1.
func (p ReasoningPath) Valid() bool {
	for i, s := range p.Steps {
		if s.Source == "" || s.Target == "" || s.Relation == "" {
			return false
		}
		if i+1 < len(p.Steps) && s.Target != p.Steps[i+1].Source {
			return false
		}
	}
	return true
}

// Result is the immutable outcome of a single question: the answer
// text, the steps taken, the evidence strings collected, and optional
// confidence/per-path scores.
type Result struct {
	Question    string
	Answer      string
	Steps       []Step
	Evidence    []string
	Confidence  float64
	PathScores  []float64
	Fallback    bool
	FallbackWhy string

	// InputError marks a rejected request (e.g. an empty question):
	// surfaced to the caller directly, never retried.
	InputError bool
}

// EvidenceStrings projects a context's evidence list down to its text
// lines, in accumulation order, for inclusion in a Result or an
// answer-generation prompt.
func EvidenceStrings(evidences []Evidence) []string {
	out := make([]string, len(evidences))
	for i, e := range evidences {
		out[i] = e.Text
	}
	return out
}
