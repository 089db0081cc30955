// Package reason implements the per-question reasoning context: the
// visited set, reasoning path, evidence list, per-depth frontier
// buckets and the stop-condition logic shared by the traversal engine
// and the schema-aware reasoner.
package reason

import (
	"sync"
	"time"

	"github.com/kadirpekel/graphreason/pkg/config"
)

// Step is a single reasoning hop: source -[relation]-> target, with its
// raw score, depth and an optional free-text rationale. Equality is by
// the (source id, relation type, target id) triple.
type Step struct {
	Source     string
	Relation   string
	Target     string
	Score      float64
	Depth      int
	Confidence float64
	Rationale  string
	Timestamp  time.Time
}

// Equal reports whether two steps share the same (source, relation,
// target) identity.
func (s Step) Equal(other Step) bool {
	return s.Source == other.Source && s.Relation == other.Relation && s.Target == other.Target
}

// Evidence is a textual reasoning-step record ("source -[type]->
// target") with its supporting score, depth and creation time.
type Evidence struct {
	Text      string
	Score     float64
	Depth     int
	Timestamp time.Time
}

// Context is the per-question mutable reasoning state. It is owned by
// exactly one session; concurrent mutation from a parallel traversal
// engine is guarded by mu.
type Context struct {
	mu sync.Mutex

	question  string
	startedAt time.Time
	budget    time.Duration

	thresholds config.EvidenceThresholds

	visited   map[string]int // entity id -> visit count
	path      []Step
	evidences []Evidence
	frontier  map[int][]string // depth -> entity ids discovered at that depth

	confidence float64

	totalEntities  int
	totalRelations int
	totalPaths     int
}

// NewContext creates a reasoning context for question, started now,
// bounded by budget (a per-session wall-clock budget) and scored
// against thresholds (the has-enough-evidence/should-stop constants).
func NewContext(question string, budget time.Duration, thresholds config.EvidenceThresholds) *Context {
	return &Context{
		question:   question,
		startedAt:  time.Now(),
		budget:     budget,
		thresholds: thresholds,
		visited:    map[string]int{},
		frontier:   map[int][]string{},
	}
}

// Question returns the question this context was built for.
func (c *Context) Question() string {
	return c.question
}

// AddEntities marks each id as visited, incrementing its visit counter.
// Idempotent: re-adding an id already present only bumps the counter,
// it does not duplicate path/evidence state.
func (c *Context) AddEntities(depth int, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := c.visited[id]; !seen {
			c.totalEntities++
			c.frontier[depth] = append(c.frontier[depth], id)
		}
		c.visited[id]++
	}
}

// VisitCount returns how many times id has been added, 0 if never seen.
func (c *Context) VisitCount(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visited[id]
}

// Frontier returns the entity ids discovered at depth, in discovery
// order. The returned slice is a copy safe for the caller to retain.
func (c *Context) Frontier(depth int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.frontier[depth]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// AddReasoningStep appends a step, marks target as visited, and records
// an evidence line "source -[relation]-> target". Confidence
// accumulates as score/(depth+1). rationale is stored on the step as
// recorded in the path, not just the caller's local copy.
func (c *Context) AddReasoningStep(source, relation, target string, score float64, depth int, rationale string) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	step := Step{
		Source: source, Relation: relation, Target: target,
		Score: score, Depth: depth, Rationale: rationale, Timestamp: now,
	}
	step.Confidence = score / float64(depth+1)
	c.confidence += step.Confidence
	c.path = append(c.path, step)
	c.totalPaths++

	if _, seen := c.visited[target]; !seen {
		c.totalEntities++
		c.frontier[depth] = append(c.frontier[depth], target)
	}
	c.visited[target]++

	evidence := Evidence{
		Text:      source + " -[" + relation + "]-> " + target,
		Score:     score,
		Depth:     depth,
		Timestamp: now,
	}
	c.evidences = append(c.evidences, evidence)
	c.totalRelations++

	return step
}

// Path returns a copy of the accumulated reasoning path in append order.
func (c *Context) Path() []Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Step, len(c.path))
	copy(out, c.path)
	return out
}

// Evidences returns a copy of the accumulated evidence list.
func (c *Context) Evidences() []Evidence {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Evidence, len(c.evidences))
	copy(out, c.evidences)
	return out
}

// Confidence returns the current cumulative depth-weighted confidence.
func (c *Context) Confidence() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidence
}

// Depth returns the highest depth reached by any step so far.
func (c *Context) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	max := 0
	for _, step := range c.path {
		if step.Depth > max {
			max = step.Depth
		}
	}
	return max
}

// Explored returns how many distinct entities have been visited.
func (c *Context) Explored() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visited)
}

// Totals returns the running entity/relation/path counts.
func (c *Context) Totals() (entities, relations, paths int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalEntities, c.totalRelations, c.totalPaths
}

// HasEnoughEvidence reports whether evidences/confidence/depth have
// crossed the configured stopping thresholds (defaults: evidences ≥ 5
// OR confidence > 2.0 OR depth ≥ 3).
func (c *Context) HasEnoughEvidence() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasEnoughEvidenceLocked()
}

func (c *Context) hasEnoughEvidenceLocked() bool {
	if len(c.evidences) >= c.thresholds.MinEvidences {
		return true
	}
	if c.confidence > c.thresholds.MinConfidence {
		return true
	}
	if c.currentDepthLocked() >= c.thresholds.MinDepthForEnough {
		return true
	}
	return false
}

func (c *Context) currentDepthLocked() int {
	max := 0
	for _, step := range c.path {
		if step.Depth > max {
			max = step.Depth
		}
	}
	return max
}

// ShouldStop reports whether the traversal should halt: depth ≥
// maxDepth, explored ≥ maxEntities, HasEnoughEvidence(), or the session
// budget has elapsed.
func (c *Context) ShouldStop(maxDepth, maxEntities int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentDepthLocked() >= maxDepth {
		return true
	}
	if len(c.visited) >= maxEntities {
		return true
	}
	if c.hasEnoughEvidenceLocked() {
		return true
	}
	if c.budget > 0 && time.Since(c.startedAt) > c.budget {
		return true
	}
	return false
}

// Elapsed returns the wall-clock duration since the context started.
func (c *Context) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.startedAt)
}
