// Package schema implements the schema inspector: a one-shot profiler
// of the underlying graph's labels, relation types and
// property frequencies, cached behind a time-based validity window, plus
// the question→SearchStrategy derivation step consumed by the search
// layer.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

// NodeTypeInfo profiles a single node label.
type NodeTypeInfo struct {
	Label      string
	Count      int64
	Properties map[string]graph.PropertyInfo
}

// Pattern is an observed (source label, target label) pair for a
// relationship type, with how many edges were observed following it.
type Pattern struct {
	SourceLabel string
	TargetLabel string
	Count       int64
}

// RelationshipTypeInfo profiles a single relationship type.
type RelationshipTypeInfo struct {
	Type       string
	Count      int64
	Patterns   []Pattern
	Properties map[string]graph.PropertyInfo
}

// GraphSchema is the full profile of a graph store: node/relationship
// type catalogs plus configuration inputs for the schema-aware reasoner
// (index suggestions, stop words and extraction patterns).
type GraphSchema struct {
	NodeTypes         map[string]NodeTypeInfo
	RelationshipTypes map[string]RelationshipTypeInfo

	IndexSuggestions  []string
	StopWords         []string
	ExtractionPatterns []string

	BuiltAt time.Time
}

// degenerateSchema is returned when the store's label enumeration
// fails: queries used by the schema inspector are tolerated to fail
// rather than aborting the session.
func degenerateSchema(at time.Time) *GraphSchema {
	return &GraphSchema{
		NodeTypes: map[string]NodeTypeInfo{
			"Entity": {Label: "Entity", Properties: map[string]graph.PropertyInfo{}},
		},
		RelationshipTypes: map[string]RelationshipTypeInfo{
			"RELATED_TO": {Type: "RELATED_TO", Properties: map[string]graph.PropertyInfo{}},
		},
		BuiltAt: at,
	}
}

// Clock returns the current time; tests substitute a fixed clock so the
// cache TTL is deterministic.
type Clock func() time.Time

// Inspector profiles a graph.Store and caches the result for TTL,
// rebuilding at most once concurrently (single-flight).
type Inspector struct {
	store graph.Store
	ttl   time.Duration
	now   Clock
	n     int // sample size per property: up to N sample string values

	mu     sync.RWMutex
	cached *GraphSchema

	group singleflight.Group
}

// NewInspector builds an Inspector over store. ttl<=0 defaults to 5
// minutes; sampleSize<=0 defaults to 5.
func NewInspector(store graph.Store, ttl time.Duration, sampleSize int) *Inspector {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sampleSize <= 0 {
		sampleSize = 5
	}
	return &Inspector{store: store, ttl: ttl, n: sampleSize, now: time.Now}
}

// Schema returns the cached schema, rebuilding it if absent or expired.
// Concurrent callers during a rebuild share a single in-flight build.
func (ins *Inspector) Schema(ctx context.Context) (*GraphSchema, error) {
	ins.mu.RLock()
	if ins.cached != nil && ins.now().Sub(ins.cached.BuiltAt) < ins.ttl {
		s := ins.cached
		ins.mu.RUnlock()
		return s, nil
	}
	ins.mu.RUnlock()

	v, err, _ := ins.group.Do("build", func() (any, error) {
		// Re-check under the singleflight key: another goroutine may
		// have already rebuilt while we waited for the lock above.
		ins.mu.RLock()
		if ins.cached != nil && ins.now().Sub(ins.cached.BuiltAt) < ins.ttl {
			s := ins.cached
			ins.mu.RUnlock()
			return s, nil
		}
		ins.mu.RUnlock()

		s := ins.build(ctx)
		ins.mu.Lock()
		ins.cached = s
		ins.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*GraphSchema), nil
}

// Invalidate drops the cached schema, forcing the next Schema call to
// rebuild.
func (ins *Inspector) Invalidate() {
	ins.mu.Lock()
	ins.cached = nil
	ins.mu.Unlock()
}

func (ins *Inspector) build(ctx context.Context) *GraphSchema {
	at := ins.now()

	nodeLabels, err := ins.store.AllNodeTypes(ctx)
	if err != nil || len(nodeLabels) == 0 {
		return degenerateSchema(at)
	}
	relTypes, err := ins.store.AllRelationshipTypes(ctx)
	if err != nil {
		relTypes = nil
	}

	schema := &GraphSchema{
		NodeTypes:         map[string]NodeTypeInfo{},
		RelationshipTypes: map[string]RelationshipTypeInfo{},
		BuiltAt:           at,
	}

	for _, label := range nodeLabels {
		info := NodeTypeInfo{Label: label, Properties: map[string]graph.PropertyInfo{}}
		if count, err := ins.store.NodeCount(ctx, label); err == nil {
			info.Count = count
		}
		if props, err := ins.store.AnalyzeNodeProperties(ctx, label); err == nil {
			for _, p := range props {
				info.Properties[p.Name] = withSamples(p, ins.sampleFor(ctx, label, p.Name))
			}
		}
		schema.NodeTypes[label] = info
	}

	for _, relType := range relTypes {
		info := RelationshipTypeInfo{Type: relType, Properties: map[string]graph.PropertyInfo{}}
		if count, err := ins.store.RelationshipCount(ctx, relType); err == nil {
			info.Count = count
		}
		if props, err := ins.store.AnalyzeRelationshipProperties(ctx, relType); err == nil {
			for _, p := range props {
				info.Properties[p.Name] = p
			}
		}
		schema.RelationshipTypes[relType] = info
	}

	schema.IndexSuggestions = suggestIndexes(schema)
	schema.StopWords = defaultStopWords()
	schema.ExtractionPatterns = defaultExtractionPatterns()

	return schema
}

func (ins *Inspector) sampleFor(ctx context.Context, label, property string) []string {
	samples, err := ins.store.SamplePropertyValues(ctx, label, property, ins.n)
	if err != nil {
		return nil
	}
	return samples
}

func withSamples(p graph.PropertyInfo, samples []string) graph.PropertyInfo {
	if len(samples) > 0 {
		p.Samples = samples
	}
	return p
}

// suggestIndexes proposes indexing the highest-frequency property of
// each node type, a conservative and storage-agnostic heuristic.
func suggestIndexes(s *GraphSchema) []string {
	var out []string
	labels := make([]string, 0, len(s.NodeTypes))
	for label := range s.NodeTypes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		info := s.NodeTypes[label]
		best := ""
		bestFreq := 0.0
		propNames := make([]string, 0, len(info.Properties))
		for name := range info.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)
		for _, name := range propNames {
			p := info.Properties[name]
			if p.Frequency > bestFreq {
				best, bestFreq = name, p.Frequency
			}
		}
		if best != "" {
			out = append(out, fmt.Sprintf("%s.%s", label, best))
		}
	}
	return out
}

func defaultStopWords() []string {
	return []string{
		"the", "a", "an", "is", "are", "was", "were", "of", "in", "on", "to",
		"and", "or", "what", "who", "which", "how", "does", "do", "did",
		"with", "for", "that", "this", "it", "as", "by", "at",
	}
}

func defaultExtractionPatterns() []string {
	// Schema-driven replacement for the Chinese-specific hard-coded
	// regexes: these patterns describe token shapes, not a language, and
	// the session layer (C10) interprets them against the question text.
	return []string{
		`[A-Za-z][A-Za-z0-9_-]{2,}`, // alphanumeric runs ≥3 chars
		`"[^"]+"`,                   // quoted phrases
		`'[^']+'`,
	}
}

// --- SearchStrategy derivation -------------------------------------------

// TypeScore pairs a node or relationship type name with its relevance
// score for a given question.
type TypeScore struct {
	Name  string
	Score float64
}

// SearchStrategy is the derived guidance for a question: which node
// types, relation types and properties are worth searching, ranked.
type SearchStrategy struct {
	NodeTypes      []TypeScore
	RelationTypes  []TypeScore
	SearchProperties map[string][]string // node type -> ranked property names
	Effective      bool
}

// DeriveStrategy scores each node/relationship type against question by
// word-overlap with the type name and substring matches against
// sampled property values.
func (ins *Inspector) DeriveStrategy(ctx context.Context, question string, nodeThreshold, relThreshold float64) (*SearchStrategy, error) {
	s, err := ins.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return DeriveStrategy(s, question, nodeThreshold, relThreshold), nil
}

// DeriveStrategy is the pure scoring function, exposed standalone so
// callers with an already-fetched GraphSchema need not pay the cache
// lookup cost again.
func DeriveStrategy(s *GraphSchema, question string, nodeThreshold, relThreshold float64) *SearchStrategy {
	qWords := tokenize(question)
	qLower := strings.ToLower(question)

	strat := &SearchStrategy{SearchProperties: map[string][]string{}}

	for label, info := range s.NodeTypes {
		score := wordOverlapScore(qWords, label)
		for name, prop := range info.Properties {
			for _, sample := range prop.Samples {
				if sample != "" && strings.Contains(qLower, strings.ToLower(sample)) {
					score = max(score, 0.6)
				}
			}
			_ = name
		}
		if score > 0 {
			strat.NodeTypes = append(strat.NodeTypes, TypeScore{Name: label, Score: score})
			strat.SearchProperties[label] = rankedProperties(info.Properties)
		}
	}
	for relType, info := range s.RelationshipTypes {
		score := wordOverlapScore(qWords, relType)
		if score > 0 {
			strat.RelationTypes = append(strat.RelationTypes, TypeScore{Name: relType, Score: score})
		}
		_ = info
	}

	sort.Slice(strat.NodeTypes, func(i, j int) bool { return strat.NodeTypes[i].Score > strat.NodeTypes[j].Score })
	sort.Slice(strat.RelationTypes, func(i, j int) bool { return strat.RelationTypes[i].Score > strat.RelationTypes[j].Score })

	strat.Effective = hasScoreAtLeast(strat.NodeTypes, nodeThreshold) && hasScoreAtLeast(strat.RelationTypes, relThreshold)
	return strat
}

func hasScoreAtLeast(scores []TypeScore, threshold float64) bool {
	for _, s := range scores {
		if s.Score >= threshold {
			return true
		}
	}
	return false
}

func rankedProperties(props map[string]graph.PropertyInfo) []string {
	type kv struct {
		name string
		freq float64
	}
	items := make([]kv, 0, len(props))
	for name, p := range props {
		items = append(items, kv{name, p.Frequency})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].freq != items[j].freq {
			return items[i].freq > items[j].freq
		}
		return items[i].name < items[j].name
	})
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	return names
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

// wordOverlapScore scores a type name against question tokens: the
// fraction of the type name's own tokens (splitting on case/underscore
// boundaries) that appear among the question's tokens, plus a flat
// bonus when the whole type name appears as a substring of the
// question.
func wordOverlapScore(qWords []string, typeName string) float64 {
	nameWords := tokenize(splitCamelAndSnake(typeName))
	if len(nameWords) == 0 {
		return 0
	}
	qset := make(map[string]bool, len(qWords))
	for _, w := range qWords {
		qset[w] = true
	}
	hits := 0
	for _, w := range nameWords {
		if qset[w] {
			hits++
		}
	}
	score := float64(hits) / float64(len(nameWords))

	if strings.Contains(strings.ToLower(strings.Join(qWords, " ")), strings.ToLower(typeName)) {
		score = max(score, 0.5)
	}
	return score
}

func splitCamelAndSnake(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' && prev >= 'a' && prev <= 'z' {
			b.WriteRune(' ')
		}
		prev = r
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
