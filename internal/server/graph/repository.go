package graph

import (
	"context"
	"fmt"
	"regexp"
)

// Store defines the interface for graph storage backends.
// Both SQLite and Neo4j implement this interface. Every write is its own
// transaction and is idempotent.
type Store interface {
	// Lifecycle
	Close(ctx context.Context) error
	EnsureConstraints(ctx context.Context, labels []string) error

	// MergeNode creates (label, key) if absent and overlays fields onto its
	// properties. Fields not named are left untouched; a nil value clears
	// the property.
	MergeNode(ctx context.Context, label, key string, fields map[string]any) error

	// MergeEdge creates the edge if absent. Missing endpoints are handled
	// according to the store's EdgePolicy.
	MergeEdge(ctx context.Context, edge EdgeRef) error

	// Read operations
	GetNode(ctx context.Context, label, key string) (*Node, error)
	Stats(ctx context.Context) (*Stats, error)
}

// KeyProperty is the node property that holds the key. Fields passed to
// MergeNode never overwrite it.
const KeyProperty = "id"

// nodeFields drops KeyProperty from fields
func nodeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == KeyProperty {
			continue
		}
		out[k] = v
	}
	return out
}

// EdgeRef identifies a directed, attribute-less relationship
type EdgeRef struct {
	FromLabel string `json:"from_label"`
	FromKey   string `json:"from_key"`
	RelType   string `json:"rel_type"`
	ToLabel   string `json:"to_label"`
	ToKey     string `json:"to_key"`
}

func (e EdgeRef) String() string {
	return fmt.Sprintf("(%s %s)-[%s]->(%s %s)", e.FromLabel, e.FromKey, e.RelType, e.ToLabel, e.ToKey)
}

// Node is a graph node as read back from the store
type Node struct {
	Label      string         `json:"label"`
	Key        string         `json:"key"`
	Properties map[string]any `json:"properties"`
	Incoming   []EdgeRef      `json:"incoming"`
	Outgoing   []EdgeRef      `json:"outgoing"`
}

// Stats summarizes store contents
type Stats struct {
	Nodes map[string]int `json:"nodes"` // by label
	Edges map[string]int `json:"edges"` // by relationship type
}

// EdgePolicy decides what an edge merge does when an endpoint node is missing
type EdgePolicy string

const (
	// EdgePolicyPlaceholder merges missing endpoints as stub nodes that carry only their key
	EdgePolicyPlaceholder EdgePolicy = "placeholder"
	// EdgePolicyStrict fails with a DanglingReferenceError
	EdgePolicyStrict EdgePolicy = "strict"
)

// ParseEdgePolicy validates a configured policy name
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch p := EdgePolicy(s); p {
	case EdgePolicyPlaceholder, EdgePolicyStrict:
		return p, nil
	case "":
		return EdgePolicyPlaceholder, nil
	default:
		return "", fmt.Errorf("unknown edge policy %q (want placeholder or strict)", s)
	}
}

// identifier matches labels and relationship types that are safe to
// interpolate into queries.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifiers(names ...string) error {
	for _, n := range names {
		if !identifier.MatchString(n) {
			return fmt.Errorf("invalid graph identifier %q", n)
		}
	}
	return nil
}

func checkEdge(edge EdgeRef) error {
	if err := checkIdentifiers(edge.FromLabel, edge.RelType, edge.ToLabel); err != nil {
		return err
	}
	if edge.FromKey == "" || edge.ToKey == "" {
		return fmt.Errorf("edge %s has an empty endpoint key", edge)
	}
	return nil
}
