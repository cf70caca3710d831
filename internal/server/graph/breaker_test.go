package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	Store
	err   error
	calls int
}

func (f *flakyStore) MergeNode(ctx context.Context, label, key string, fields map[string]any) error {
	f.calls++
	return f.err
}

func (f *flakyStore) MergeEdge(ctx context.Context, edge EdgeRef) error {
	f.calls++
	return f.err
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

func TestBreakerOpensOnStoreErrors(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: &StoreError{Op: "merge_node", Err: errors.New("connection refused")}}
	b := NewBreaker(inner, testBreakerConfig(), nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.MergeNode(ctx, "Account", "A1", nil), ErrStore)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.MergeNode(ctx, "Account", "A1", nil)
	require.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, inner.calls, "open breaker short-circuits")
}

func TestBreakerIgnoresDanglingReferences(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: &DanglingReferenceError{Edge: EdgeRef{FromLabel: "Case", FromKey: "C1"}, MissingFrom: true}}
	b := NewBreaker(inner, testBreakerConfig(), nil)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.MergeEdge(ctx, EdgeRef{}), ErrDanglingReference)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 5, inner.calls)
}

func TestBreakerPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	b := NewBreaker(store, DefaultBreakerConfig("sqlite"), nil)

	require.NoError(t, b.MergeNode(ctx, "Product", "P1", map[string]any{"Name": "Widget"}))
	node, err := b.GetNode(ctx, "Product", "P1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", node.Properties["Name"])

	_, err = b.GetNode(ctx, "Product", "missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
