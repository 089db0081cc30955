// Package sqlstore is a reference implementation of graph.Store backed
// by PostgreSQL. It stores the property graph in two generic tables —
// graph_nodes(id, label, name, properties jsonb) and
// graph_edges(source_id, target_id, type, properties jsonb) — and
// exercises ExecuteParameterizedQuery as plain parameterized SQL. It
// exists to give the narrow C1 contract one concrete, exercised
// backend; it is not a query language and the core never builds SQL
// text from user input.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/kadirpekel/graphreason/pkg/graph"
)

// Config describes how to connect to the Postgres-backed graph store.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
}

// Store is a graph.Store backed by a *sql.DB using the "postgres" driver.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	cfg Config
}

// Open connects to Postgres and returns a ready Store. The connection
// pool is lazy: Open only pings once to fail fast on misconfiguration.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.setDefaults()
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, graph.WrapUnavailable(err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, graph.WrapUnavailable(err)
	}

	return &Store{db: db, cfg: cfg}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindEntity(ctx context.Context, id string) (graph.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, name, properties FROM graph_nodes WHERE id = $1`, id)

	var e graph.Entity
	var propsJSON []byte
	if err := row.Scan(&e.ID, &e.Type, &e.Name, &propsJSON); err != nil {
		if err == sql.ErrNoRows {
			return graph.Entity{}, graph.ErrNotFound
		}
		return graph.Entity{}, graph.WrapQueryFailed(err)
	}
	e.Properties = decodeProps(propsJSON)
	return e, nil
}

func (s *Store) EntityRelations(ctx context.Context, id string) ([]graph.Relation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, type, properties FROM graph_edges
		 WHERE source_id = $1 OR target_id = $1`, id)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()

	var out []graph.Relation
	for rows.Next() {
		var r graph.Relation
		var propsJSON []byte
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.Type, &propsJSON); err != nil {
			return nil, graph.WrapQueryFailed(err)
		}
		r.Properties = decodeProps(propsJSON)
		r.Directed = true
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExecuteParameterizedQuery runs query as a parameterized SQL statement.
// params are applied positionally as $1, $2, ... from the keys "p1",
// "p2", ... (stopping at the first missing key); callers of this
// escape hatch (the schema inspector, store initializers) always pass a
// fixed literal query string. The search layer's "list_entities"
// bootstrap query is run as a SELECT of id, name, type and properties
// over graph_nodes.
func (s *Store) ExecuteParameterizedQuery(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	if query == "list_entities" {
		query = `SELECT id, name, label AS type, properties FROM graph_nodes`
	}
	args := orderedArgs(params)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}

	var out []graph.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, graph.WrapQueryFailed(err)
		}
		row := graph.Row{}
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) AllNodeTypes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT label FROM graph_nodes ORDER BY label`)
}

func (s *Store) AllRelationshipTypes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, `SELECT DISTINCT type FROM graph_edges ORDER BY type`)
}

func (s *Store) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, graph.WrapQueryFailed(err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) NodeCount(ctx context.Context, label string) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM graph_nodes WHERE label = $1`, label)
}

func (s *Store) RelationshipCount(ctx context.Context, relType string) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM graph_edges WHERE type = $1`, relType)
}

func (s *Store) TotalNodeCount(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM graph_nodes`)
}

func (s *Store) TotalRelationshipCount(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT count(*) FROM graph_edges`)
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, graph.WrapQueryFailed(err)
	}
	return n, nil
}

func (s *Store) AnalyzeNodeProperties(ctx context.Context, label string) ([]graph.PropertyInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT properties FROM graph_nodes WHERE label = $1`, label)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()
	return analyzeRows(rows)
}

func (s *Store) AnalyzeRelationshipProperties(ctx context.Context, relType string) ([]graph.PropertyInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT properties FROM graph_edges WHERE type = $1`, relType)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()
	return analyzeRows(rows)
}

func (s *Store) SamplePropertyValues(ctx context.Context, label, property string, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT properties->>$1 FROM graph_nodes WHERE label = $2 AND properties ? $1 LIMIT $3`,
		property, label, n)
	if err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, graph.WrapQueryFailed(err)
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	return out, rows.Err()
}

func (s *Store) DatabaseType(_ context.Context) (string, error) { return "postgres", nil }

func (s *Store) Version(ctx context.Context) (string, error) {
	var v string
	if err := s.db.QueryRowContext(ctx, `SHOW server_version`).Scan(&v); err != nil {
		return "", graph.WrapQueryFailed(err)
	}
	return v, nil
}

func decodeProps(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		slog.Warn("sqlstore: failed to decode properties", "error", err)
		return nil
	}
	return m
}

func analyzeRows(rows *sql.Rows) ([]graph.PropertyInfo, error) {
	counts := map[string]int{}
	samples := map[string][]string{}
	total := 0

	for rows.Next() {
		var propsJSON []byte
		if err := rows.Scan(&propsJSON); err != nil {
			return nil, graph.WrapQueryFailed(err)
		}
		props := decodeProps(propsJSON)
		total++
		for k, v := range props {
			counts[k]++
			if len(samples[k]) < 5 {
				samples[k] = append(samples[k], fmt.Sprintf("%v", v))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, graph.WrapQueryFailed(err)
	}
	if total == 0 {
		return nil, nil
	}

	var out []graph.PropertyInfo
	for k, c := range counts {
		out = append(out, graph.PropertyInfo{
			Name:      k,
			Frequency: float64(c) / float64(total),
			Kind:      graph.KindString,
			Samples:   samples[k],
		})
	}
	return out, nil
}

// orderedArgs flattens a params map into positional args in "p1".."pN"
// order, the convention this package's callers use for $1-style binds.
func orderedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, 0, len(params))
	for i := 1; ; i++ {
		key := fmt.Sprintf("p%d", i)
		v, ok := params[key]
		if !ok {
			break
		}
		args = append(args, v)
	}
	return args
}
