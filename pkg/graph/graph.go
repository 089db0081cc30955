// Package graph defines the narrow read contract the reasoning core
// consumes from an underlying property-graph store. The core never
// constructs a query language of its own and never mutates graph data;
// it only reads entities, relations and schema-level statistics through
// this interface.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// Entity is a node in the knowledge graph. Entities are owned by the
// graph store that returns them; the core treats them as read-only
// borrowings for the duration of a reasoning session.
type Entity struct {
	ID         string
	Name       string
	Type       string
	Properties map[string]any
}

// Relation is a directed, typed edge, optionally carrying properties.
type Relation struct {
	SourceID   string
	TargetID   string
	Type       string
	Properties map[string]any
	Directed   bool
}

// Other returns the endpoint of the relation that is not id. It is used
// by the traversal engine to resolve the "other side" of an incident
// edge regardless of which direction it was stored in.
func (r Relation) Other(id string) string {
	if r.SourceID == id {
		return r.TargetID
	}
	return r.SourceID
}

// Row is a single result row from ExecuteParameterizedQuery. Column
// names are driver-reported; values are driver-native (string, int64,
// float64, bool, nil, time.Time, ...).
type Row map[string]any

// Store is the minimal read contract consumed by the reasoning core,
// including the schema-level statistics and property analysis the
// schema inspector (pkg/schema) uses to profile the graph.
type Store interface {
	// FindEntity looks up a single entity by id. Returns ErrNotFound if
	// no such entity exists.
	FindEntity(ctx context.Context, id string) (Entity, error)

	// EntityRelations returns every incident edge of id, in both
	// directions. Order is unspecified but stable within a session.
	EntityRelations(ctx context.Context, id string) ([]Relation, error)

	// ExecuteParameterizedQuery is an escape hatch used only by the
	// schema inspector and store-specific initializers. The core never
	// builds query text from user input; callers always pass a fixed,
	// literal query string with bound parameters.
	ExecuteParameterizedQuery(ctx context.Context, query string, params map[string]any) ([]Row, error)

	// AllNodeTypes returns every distinct node label known to the store.
	AllNodeTypes(ctx context.Context) ([]string, error)

	// AllRelationshipTypes returns every distinct relation type string.
	AllRelationshipTypes(ctx context.Context) ([]string, error)

	// NodeCount returns the approximate number of nodes with the label.
	NodeCount(ctx context.Context, label string) (int64, error)

	// RelationshipCount returns the approximate number of relations of type.
	RelationshipCount(ctx context.Context, relType string) (int64, error)

	// TotalNodeCount returns the total number of nodes in the store.
	TotalNodeCount(ctx context.Context) (int64, error)

	// TotalRelationshipCount returns the total number of relations.
	TotalRelationshipCount(ctx context.Context) (int64, error)

	// AnalyzeNodeProperties profiles the properties observed on nodes
	// carrying label.
	AnalyzeNodeProperties(ctx context.Context, label string) ([]PropertyInfo, error)

	// AnalyzeRelationshipProperties profiles the properties observed on
	// relations of relType.
	AnalyzeRelationshipProperties(ctx context.Context, relType string) ([]PropertyInfo, error)

	// SamplePropertyValues returns up to n sample string values observed
	// for property on label.
	SamplePropertyValues(ctx context.Context, label, property string, n int) ([]string, error)

	// DatabaseType reports the backing store's type, for diagnostics.
	DatabaseType(ctx context.Context) (string, error)

	// Version reports the backing store's version, for diagnostics.
	Version(ctx context.Context) (string, error)
}

// PropertyInfo carries the profiling result for a single property:
// how often it occurs, its inferred primary kind, and sample values.
type PropertyInfo struct {
	Name      string
	Frequency float64
	Kind      ValueKind
	Samples   []string
}

// ValueKind is the inferred primary value kind of a property.
type ValueKind string

const (
	KindInteger ValueKind = "integer"
	KindFloat   ValueKind = "float"
	KindBoolean ValueKind = "boolean"
	KindString  ValueKind = "string"
)

// Error kinds a Store call may fail with. All are
// recoverable per-call failures: the core degrades gracefully rather
// than aborting the session.
var (
	ErrNotFound        = errors.New("graph: entity not found")
	ErrStoreUnavailable = errors.New("graph: store unavailable")
	ErrQueryFailed     = errors.New("graph: query failed")
)

// WrapUnavailable wraps err so errors.Is(err, ErrStoreUnavailable) holds,
// preserving the original cause for logging.
func WrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// WrapQueryFailed wraps err so errors.Is(err, ErrQueryFailed) holds.
func WrapQueryFailed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
