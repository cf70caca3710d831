package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Neo4jStore implements Store on Neo4j. Node keys live in the `id` property.
type Neo4jStore struct {
	emitter
	driver   neo4j.DriverWithContext
	database string
	policy   EdgePolicy
	log      *zap.Logger
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4j creates a new Neo4j store
func NewNeo4j(ctx context.Context, cfg Neo4jConfig, opts ...Option) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	o := applyOptions(opts)
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		driver:   driver,
		database: database,
		policy:   o.policy,
		log:      o.log,
	}, nil
}

// Close closes the Neo4j connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: mode})
}

// EnsureConstraints creates a uniqueness constraint on id for every label.
// Concurrent merges of the same key rely on it to avoid duplicate nodes.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context, labels []string) error {
	if err := checkIdentifiers(labels...); err != nil {
		return err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range labels {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(label), label,
		)
		// schema statements cannot run inside managed transactions alongside data writes
		result, err := session.Run(ctx, query, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			return storeErr("ensure_constraints", err)
		}
		s.log.Debug("constraint ensured", zap.String("label", label))
	}
	return nil
}

// MergeNode upserts (label, key) and overlays fields
func (s *Neo4jStore) MergeNode(ctx context.Context, label, key string, fields map[string]any) error {
	if err := checkIdentifiers(label); err != nil {
		return err
	}
	fields = nodeFields(fields)

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MERGE (n:%s {id: $key})
			SET n += $fields, n.id = $key
		`, label)

		_, err := tx.Run(ctx, query, map[string]any{
			"key":    key,
			"fields": fields,
		})
		return nil, err
	})
	if err != nil {
		return storeErr("merge_node", err)
	}

	s.emitNode(label, key, fields)
	return nil
}

// MergeEdge merges the relationship described by edge
func (s *Neo4jStore) MergeEdge(ctx context.Context, edge EdgeRef) error {
	if err := checkEdge(edge); err != nil {
		return err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	params := map[string]any{
		"from_key": edge.FromKey,
		"to_key":   edge.ToKey,
	}

	var work neo4j.ManagedTransactionWork
	switch s.policy {
	case EdgePolicyStrict:
		work = func(tx neo4j.ManagedTransaction) (any, error) {
			query := fmt.Sprintf(`
				OPTIONAL MATCH (a:%s {id: $from_key})
				OPTIONAL MATCH (b:%s {id: $to_key})
				FOREACH (_ IN CASE WHEN a IS NOT NULL AND b IS NOT NULL THEN [1] ELSE [] END |
					MERGE (a)-[:%s]->(b))
				RETURN a IS NOT NULL AS from_found, b IS NOT NULL AS to_found
				LIMIT 1
			`, edge.FromLabel, edge.ToLabel, edge.RelType)

			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			record, err := result.Single(ctx)
			if err != nil {
				return nil, err
			}
			fromFound, _ := record.Get("from_found")
			toFound, _ := record.Get("to_found")
			if fromFound != true || toFound != true {
				return nil, &DanglingReferenceError{
					Edge:        edge,
					MissingFrom: fromFound != true,
					MissingTo:   toFound != true,
				}
			}
			return nil, nil
		}
	default:
		work = func(tx neo4j.ManagedTransaction) (any, error) {
			query := fmt.Sprintf(`
				MERGE (a:%s {id: $from_key})
				MERGE (b:%s {id: $to_key})
				MERGE (a)-[:%s]->(b)
			`, edge.FromLabel, edge.ToLabel, edge.RelType)

			_, err := tx.Run(ctx, query, params)
			return nil, err
		}
	}

	if _, err := session.ExecuteWrite(ctx, work); err != nil {
		return storeErr("merge_edge", err)
	}

	s.emitEdge(edge)
	return nil
}

// GetNode retrieves a node and its adjacent edges
func (s *Neo4jStore) GetNode(ctx context.Context, label, key string) (*Node, error) {
	if err := checkIdentifiers(label); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (n:%s {id: $key})
			OPTIONAL MATCH (src)-[r]->(n)
			WITH n, collect(CASE WHEN src IS NULL THEN NULL
				ELSE {label: head(labels(src)), key: toString(src.id), rel: type(r)} END) AS incoming
			OPTIONAL MATCH (n)-[r2]->(dst)
			RETURN properties(n) AS props, incoming,
				collect(CASE WHEN dst IS NULL THEN NULL
					ELSE {label: head(labels(dst)), key: toString(dst.id), rel: type(r2)} END) AS outgoing
		`, label)

		result, err := tx.Run(ctx, query, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, ErrNodeNotFound
		}

		record := result.Record()
		props, _ := record.Get("props")
		incoming, _ := record.Get("incoming")
		outgoing, _ := record.Get("outgoing")

		node := &Node{Label: label, Key: key, Properties: map[string]any{}}
		if m, ok := props.(map[string]any); ok {
			for k, v := range m {
				if k == KeyProperty {
					continue
				}
				node.Properties[k] = v
			}
		}
		for _, adj := range toAdjacent(incoming) {
			node.Incoming = append(node.Incoming, EdgeRef{
				FromLabel: adj.label, FromKey: adj.key, RelType: adj.rel, ToLabel: label, ToKey: key,
			})
		}
		for _, adj := range toAdjacent(outgoing) {
			node.Outgoing = append(node.Outgoing, EdgeRef{
				FromLabel: label, FromKey: key, RelType: adj.rel, ToLabel: adj.label, ToKey: adj.key,
			})
		}
		return node, nil
	})
	if err != nil {
		return nil, storeErr("get_node", err)
	}

	return result.(*Node), nil
}

type adjacent struct {
	label, key, rel string
}

func toAdjacent(v any) []adjacent {
	list, _ := v.([]any)
	out := make([]adjacent, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		a := adjacent{}
		a.label, _ = m["label"].(string)
		a.key, _ = m["key"].(string)
		a.rel, _ = m["rel"].(string)
		out = append(out, a)
	}
	return out
}

// Stats counts nodes per label and edges per relationship type
func (s *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stats := &Stats{Nodes: map[string]int{}, Edges: map[string]int{}}

		nodes, err := tx.Run(ctx, `MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		for nodes.Next(ctx) {
			label, _ := nodes.Record().Get("label")
			count, _ := nodes.Record().Get("c")
			stats.Nodes[label.(string)] = int(count.(int64))
		}
		if err := nodes.Err(); err != nil {
			return nil, err
		}

		edges, err := tx.Run(ctx, `MATCH ()-[r]->() RETURN type(r) AS rel, count(*) AS c`, nil)
		if err != nil {
			return nil, err
		}
		for edges.Next(ctx) {
			rel, _ := edges.Record().Get("rel")
			count, _ := edges.Record().Get("c")
			stats.Edges[rel.(string)] = int(count.(int64))
		}
		return stats, edges.Err()
	})
	if err != nil {
		return nil, storeErr("stats", err)
	}

	return result.(*Stats), nil
}
