package graph

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a running Neo4j instance, e.g.
//
//	NEO4J_TEST_URI=bolt://localhost:7687 NEO4J_TEST_PASSWORD=password go test ./internal/server/graph/
func newTestNeo4j(t *testing.T, opts ...Option) *Neo4jStore {
	t.Helper()

	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	user := os.Getenv("NEO4J_TEST_USER")
	if user == "" {
		user = "neo4j"
	}

	ctx := context.Background()
	store, err := NewNeo4j(ctx, Neo4jConfig{
		URI:      uri,
		Username: user,
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })
	return store
}

func TestNeo4jMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestNeo4j(t)
	require.NoError(t, store.EnsureConstraints(ctx, []string{"Account", "Contact"}))

	// unique keys keep runs against a shared database apart
	account := "A-" + uuid.NewString()
	contact := "K-" + uuid.NewString()
	edge := EdgeRef{FromLabel: "Account", FromKey: account, RelType: "HAS_CONTACT", ToLabel: "Contact", ToKey: contact}

	for i := 0; i < 2; i++ {
		require.NoError(t, store.MergeNode(ctx, "Contact", contact, map[string]any{"LastName": "Doe"}))
		require.NoError(t, store.MergeEdge(ctx, edge))
	}
	require.NoError(t, store.MergeNode(ctx, "Account", account, map[string]any{"Name": "Acme"}))

	node, err := store.GetNode(ctx, "Contact", contact)
	require.NoError(t, err)
	assert.Equal(t, "Doe", node.Properties["LastName"])
	assert.Equal(t, []EdgeRef{edge}, node.Incoming)

	acct, err := store.GetNode(ctx, "Account", account)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Name": "Acme"}, acct.Properties)
}

func TestNeo4jStrictPolicy(t *testing.T) {
	ctx := context.Background()
	store := newTestNeo4j(t, WithEdgePolicy(EdgePolicyStrict))

	note := "N-" + uuid.NewString()
	require.NoError(t, store.MergeNode(ctx, "Note", note, nil))

	err := store.MergeEdge(ctx, EdgeRef{FromLabel: "Case", FromKey: "C-" + uuid.NewString(), RelType: "HAS_NOTE", ToLabel: "Note", ToKey: note})
	assert.ErrorIs(t, err, ErrDanglingReference)
}

func TestNeo4jMergeNodeKeepsKeyProperty(t *testing.T) {
	ctx := context.Background()
	store := newTestNeo4j(t)

	account := "A-" + uuid.NewString()
	other := "A-" + uuid.NewString()

	require.NoError(t, store.MergeNode(ctx, "Account", account, map[string]any{"id": other, "Name": "Acme"}))
	require.NoError(t, store.MergeNode(ctx, "Account", account, map[string]any{"Industry": "Retail"}))

	node, err := store.GetNode(ctx, "Account", account)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Name": "Acme", "Industry": "Retail"}, node.Properties)

	_, err = store.GetNode(ctx, "Account", other)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
