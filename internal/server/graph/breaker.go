package graph

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds circuit breaker settings for a store
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// Trip once at least MinRequests were seen and the failure ratio reaches FailureThreshold
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the settings used by the server
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      10,
	}
}

// Breaker guards a Store with a circuit breaker. Only StoreErrors count as
// failures; dangling references and missing nodes are client outcomes.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next
func NewBreaker(next Store, cfg BreakerConfig, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("graph store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrStore)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// State reports the breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) do(op string, fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &StoreError{Op: op, Err: err}
	}
	return err
}

func (b *Breaker) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}

func (b *Breaker) EnsureConstraints(ctx context.Context, labels []string) error {
	return b.do("ensure_constraints", func() error {
		return b.next.EnsureConstraints(ctx, labels)
	})
}

func (b *Breaker) MergeNode(ctx context.Context, label, key string, fields map[string]any) error {
	return b.do("merge_node", func() error {
		return b.next.MergeNode(ctx, label, key, fields)
	})
}

func (b *Breaker) MergeEdge(ctx context.Context, edge EdgeRef) error {
	return b.do("merge_edge", func() error {
		return b.next.MergeEdge(ctx, edge)
	})
}

func (b *Breaker) GetNode(ctx context.Context, label, key string) (*Node, error) {
	var node *Node
	err := b.do("get_node", func() error {
		var err error
		node, err = b.next.GetNode(ctx, label, key)
		return err
	})
	return node, err
}

func (b *Breaker) Stats(ctx context.Context) (*Stats, error) {
	var stats *Stats
	err := b.do("stats", func() error {
		var err error
		stats, err = b.next.Stats(ctx)
		return err
	})
	return stats, err
}
