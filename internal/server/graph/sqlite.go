package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	emitter
	db     *sql.DB
	policy EdgePolicy
	log    *zap.Logger
}

// NewSQLite opens (and if needed creates) the database at dbPath
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer at a time; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	o := applyOptions(opts)
	return &SQLiteStore{db: db, policy: o.policy, log: o.log}, nil
}

// Close closes the SQLite connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// EnsureConstraints is a no-op: the nodes primary key already enforces (label, key) uniqueness
func (s *SQLiteStore) EnsureConstraints(ctx context.Context, labels []string) error {
	return checkIdentifiers(labels...)
}

// MergeNode upserts (label, key) and overlays fields
func (s *SQLiteStore) MergeNode(ctx context.Context, label, key string, fields map[string]any) error {
	if err := checkIdentifiers(label); err != nil {
		return err
	}
	fields = nodeFields(fields)

	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `
		INSERT INTO nodes (label, key, properties, created_at, modified_at)
		VALUES (?, ?, json_patch('{}', ?), ?, ?)
		ON CONFLICT(label, key) DO UPDATE SET
			properties = json_patch(nodes.properties, ?),
			modified_at = excluded.modified_at
	`
	if _, err := s.db.ExecContext(ctx, query, label, key, string(patch), now, now, string(patch)); err != nil {
		return storeErr("merge_node", err)
	}

	s.emitNode(label, key, fields)
	return nil
}

// MergeEdge merges the relationship described by edge
func (s *SQLiteStore) MergeEdge(ctx context.Context, edge EdgeRef) error {
	if err := checkEdge(edge); err != nil {
		return err
	}

	if err := s.mergeEdgeTx(ctx, edge); err != nil {
		return storeErr("merge_edge", err)
	}

	s.emitEdge(edge)
	return nil
}

func (s *SQLiteStore) mergeEdgeTx(ctx context.Context, edge EdgeRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	switch s.policy {
	case EdgePolicyStrict:
		fromFound, err := nodeExists(ctx, tx, edge.FromLabel, edge.FromKey)
		if err != nil {
			return err
		}
		toFound, err := nodeExists(ctx, tx, edge.ToLabel, edge.ToKey)
		if err != nil {
			return err
		}
		if !fromFound || !toFound {
			return &DanglingReferenceError{Edge: edge, MissingFrom: !fromFound, MissingTo: !toFound}
		}
	default:
		stub := `
			INSERT INTO nodes (label, key, properties, created_at, modified_at)
			VALUES (?, ?, '{}', ?, ?)
			ON CONFLICT(label, key) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, stub, edge.FromLabel, edge.FromKey, now, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stub, edge.ToLabel, edge.ToKey, now, now); err != nil {
			return err
		}
	}

	insert := `
		INSERT INTO edges (from_label, from_key, rel_type, to_label, to_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert,
		edge.FromLabel, edge.FromKey, edge.RelType, edge.ToLabel, edge.ToKey, now,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func nodeExists(ctx context.Context, tx *sql.Tx, label, key string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE label = ? AND key = ?`, label, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetNode retrieves a node and its adjacent edges
func (s *SQLiteStore) GetNode(ctx context.Context, label, key string) (*Node, error) {
	var props string
	err := s.db.QueryRowContext(ctx,
		`SELECT properties FROM nodes WHERE label = ? AND key = ?`, label, key,
	).Scan(&props)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, storeErr("get_node", err)
	}

	properties, err := decodeProperties(props)
	if err != nil {
		return nil, err
	}
	node := &Node{Label: label, Key: key, Properties: properties}

	node.Incoming, err = s.queryEdges(ctx, `
		SELECT from_label, from_key, rel_type, to_label, to_key FROM edges
		WHERE to_label = ? AND to_key = ? ORDER BY id`, label, key)
	if err != nil {
		return nil, storeErr("get_node", err)
	}
	node.Outgoing, err = s.queryEdges(ctx, `
		SELECT from_label, from_key, rel_type, to_label, to_key FROM edges
		WHERE from_label = ? AND from_key = ? ORDER BY id`, label, key)
	if err != nil {
		return nil, storeErr("get_node", err)
	}

	return node, nil
}

// decodeProperties reads a stored properties document. Integers come back as
// int64 so values beyond 2^53 keep every digit.
func decodeProperties(doc string) (map[string]any, error) {
	var props map[string]any
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("unmarshaling properties: %w", err)
	}
	for k, v := range props {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			props[k] = i
		} else if f, err := n.Float64(); err == nil {
			props[k] = f
		}
	}
	return props, nil
}

func (s *SQLiteStore) queryEdges(ctx context.Context, query string, args ...any) ([]EdgeRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []EdgeRef
	for rows.Next() {
		var e EdgeRef
		if err := rows.Scan(&e.FromLabel, &e.FromKey, &e.RelType, &e.ToLabel, &e.ToKey); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Stats counts nodes per label and edges per relationship type
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Nodes: map[string]int{}, Edges: map[string]int{}}

	if err := s.countInto(ctx, `SELECT label, COUNT(*) FROM nodes GROUP BY label`, stats.Nodes); err != nil {
		return nil, storeErr("stats", err)
	}
	if err := s.countInto(ctx, `SELECT rel_type, COUNT(*) FROM edges GROUP BY rel_type`, stats.Edges); err != nil {
		return nil, storeErr("stats", err)
	}
	return stats, nil
}

func (s *SQLiteStore) countInto(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		into[name] = count
	}
	return rows.Err()
}
