package graph

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/events"
)

// Option configures a store
type Option func(*options)

type options struct {
	policy EdgePolicy
	log    *zap.Logger
}

func defaultOptions() options {
	return options{policy: EdgePolicyPlaceholder, log: zap.NewNop()}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEdgePolicy sets how edge merges treat missing endpoints
func WithEdgePolicy(p EdgePolicy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

// WithLogger sets the store logger
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// emitter is embedded by backends that publish write events
type emitter struct {
	eventEmitter events.Emitter
}

// SetEventEmitter sets the callback for emitting events
func (e *emitter) SetEventEmitter(fn events.Emitter) {
	e.eventEmitter = fn
}

func (e *emitter) emitNode(label, key string, fields map[string]any) {
	if e.eventEmitter == nil {
		return
	}
	e.eventEmitter(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventNodeMerged,
		Timestamp: time.Now(),
		Label:     label,
		Key:       key,
		Fields:    fields,
	})
}

func (e *emitter) emitEdge(edge EdgeRef) {
	if e.eventEmitter == nil {
		return
	}
	e.eventEmitter(events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventEdgeMerged,
		Timestamp: time.Now(),
		FromLabel: edge.FromLabel,
		FromKey:   edge.FromKey,
		RelType:   edge.RelType,
		ToLabel:   edge.ToLabel,
		ToKey:     edge.ToKey,
	})
}
