package graph

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// MemStore is an in-memory Store, useful both as the reference
// implementation for tests and as a
// drop-in store for small graphs that don't warrant an external
// database.
type MemStore struct {
	mu        sync.RWMutex
	entities  map[string]Entity
	relations []Relation
	dbType    string
	version   string

	// failNodeTypeEnumeration, when true, makes AllNodeTypes (and
	// therefore schema inspection) fail — used to exercise the schema
	// inspector's graceful-degradation path.
	failNodeTypeEnumeration bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entities: make(map[string]Entity),
		dbType:   "memstore",
		version:  "0.0.0",
	}
}

// AddEntity inserts or replaces an entity.
func (s *MemStore) AddEntity(e Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
}

// AddRelation appends a relation. Both endpoints need not already
// exist; dangling relations are tolerated the same way a real store
// might return one (boundary behavior).
func (s *MemStore) AddRelation(r Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations = append(s.relations, r)
}

// FailNodeTypeEnumeration makes AllNodeTypes return ErrStoreUnavailable,
// for exercising the schema inspector's fallback-schema path.
func (s *MemStore) FailNodeTypeEnumeration(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNodeTypeEnumeration = fail
}

func (s *MemStore) FindEntity(_ context.Context, id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return Entity{}, ErrNotFound
	}
	return e, nil
}

func (s *MemStore) EntityRelations(_ context.Context, id string) ([]Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Relation
	for _, r := range s.relations {
		if r.SourceID == id || r.TargetID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// ExecuteParameterizedQuery has no general query engine; MemStore only
// understands the "list_entities" bootstrap convention used by the
// search layer's initializer to seed its in-memory index. Any other
// query text fails, matching a real backend rejecting a query it
// doesn't recognize.
func (s *MemStore) ExecuteParameterizedQuery(_ context.Context, query string, _ map[string]any) ([]Row, error) {
	if query != "list_entities" {
		return nil, ErrQueryFailed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]Row, 0, len(s.entities))
	for _, e := range s.entities {
		rows = append(rows, Row{
			"id":         e.ID,
			"name":       e.Name,
			"type":       e.Type,
			"properties": e.Properties,
		})
	}
	return rows, nil
}

func (s *MemStore) AllNodeTypes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failNodeTypeEnumeration {
		return nil, ErrStoreUnavailable
	}
	seen := map[string]bool{}
	var out []string
	for _, e := range s.entities {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) AllRelationshipTypes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range s.relations {
		if !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) NodeCount(_ context.Context, label string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.entities {
		if e.Type == label {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) RelationshipCount(_ context.Context, relType string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.relations {
		if r.Type == relType {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) TotalNodeCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entities)), nil
}

func (s *MemStore) TotalRelationshipCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.relations)), nil
}

func (s *MemStore) AnalyzeNodeProperties(_ context.Context, label string) ([]PropertyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analyzeProperties(entityProps(s.entities, label)), nil
}

func (s *MemStore) AnalyzeRelationshipProperties(_ context.Context, relType string) ([]PropertyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return analyzeProperties(relationProps(s.relations, relType)), nil
}

func (s *MemStore) SamplePropertyValues(_ context.Context, label, property string, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, e := range s.entities {
		if e.Type != label {
			continue
		}
		if v, ok := e.Properties[property]; ok {
			out = append(out, toSampleString(v))
			if len(out) >= n {
				break
			}
		}
	}
	return out, nil
}

func (s *MemStore) DatabaseType(_ context.Context) (string, error) { return s.dbType, nil }
func (s *MemStore) Version(_ context.Context) (string, error)      { return s.version, nil }

func entityProps(entities map[string]Entity, label string) []map[string]any {
	var out []map[string]any
	for _, e := range entities {
		if e.Type == label {
			out = append(out, e.Properties)
		}
	}
	return out
}

func relationProps(relations []Relation, relType string) []map[string]any {
	var out []map[string]any
	for _, r := range relations {
		if r.Type == relType {
			out = append(out, r.Properties)
		}
	}
	return out
}

// analyzeProperties profiles a set of property maps into PropertyInfo
// entries: frequency of occurrence, inferred primary kind, and samples.
func analyzeProperties(propSets []map[string]any) []PropertyInfo {
	if len(propSets) == 0 {
		return nil
	}
	counts := map[string]int{}
	kindVotes := map[string]map[ValueKind]int{}
	samples := map[string][]string{}

	for _, props := range propSets {
		for k, v := range props {
			counts[k]++
			if kindVotes[k] == nil {
				kindVotes[k] = map[ValueKind]int{}
			}
			kindVotes[k][inferKind(v)]++
			if len(samples[k]) < 5 {
				samples[k] = append(samples[k], toSampleString(v))
			}
		}
	}

	var out []PropertyInfo
	for k, count := range counts {
		out = append(out, PropertyInfo{
			Name:      k,
			Frequency: float64(count) / float64(len(propSets)),
			Kind:      topKind(kindVotes[k]),
			Samples:   samples[k],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func inferKind(v any) ValueKind {
	switch v.(type) {
	case int, int32, int64:
		return KindInteger
	case float32, float64:
		return KindFloat
	case bool:
		return KindBoolean
	default:
		return KindString
	}
}

func topKind(votes map[ValueKind]int) ValueKind {
	var best ValueKind = KindString
	bestN := -1
	for k, n := range votes {
		if n > bestN {
			best, bestN = k, n
		}
	}
	return best
}

func toSampleString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
