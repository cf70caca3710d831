// Package projection turns CRM change records into idempotent graph merges.
//
// A record is resolved against the entity registry, merged as one node keyed
// by its identifier, and linked to every entity it references. Each write is
// an independent merge, so a failed projection can be replayed from the top.
package projection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/graph"
	"github.com/systemshift/crmgraph/internal/server/metrics"
	"github.com/systemshift/crmgraph/internal/server/registry"
)

// Registry resolves object types to entity specs
type Registry interface {
	Lookup(objectType string) (registry.EntitySpec, bool)
}

// Writer is the subset of graph.Store the engine writes through
type Writer interface {
	MergeNode(ctx context.Context, label, key string, fields map[string]any) error
	MergeEdge(ctx context.Context, edge graph.EdgeRef) error
}

// Result summarizes the merges one projection applied
type Result struct {
	Type       string `json:"object"`
	Label      string `json:"label"`
	Key        string `json:"key"`
	NodeMerges int    `json:"nodeMerges"`
	EdgeMerges int    `json:"edgeMerges"`
}

// Engine projects change records. It keeps no state between calls and is
// safe for concurrent use.
type Engine struct {
	registry Registry
	store    Writer
	log      *zap.Logger
	metrics  *metrics.Collector
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records projection metrics on c
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// New creates an engine writing to store
func New(reg Registry, store Writer, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		store:    store,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Project merges record as a node of objectType's label and links it to
// every referenced entity present in the record. References that are
// absent or null are skipped.
func (e *Engine) Project(ctx context.Context, objectType string, record map[string]any) (Result, error) {
	start := time.Now()
	res, err := e.project(ctx, objectType, record)

	outcome := Outcome(err)
	object := objectType
	if res.Label == "" {
		// not in the registry
		object = metrics.UnknownObject
	}
	e.metrics.ObserveProjection(object, outcome, time.Since(start))

	if err != nil {
		e.log.Warn("projection failed",
			zap.String("object", objectType),
			zap.String("key", res.Key),
			zap.String("outcome", outcome),
			zap.Int("edge_merges", res.EdgeMerges),
			zap.Error(err))
		return res, err
	}

	e.log.Debug("record projected",
		zap.String("object", objectType),
		zap.String("key", res.Key),
		zap.Int("edge_merges", res.EdgeMerges))
	return res, nil
}

func (e *Engine) project(ctx context.Context, objectType string, record map[string]any) (Result, error) {
	res := Result{Type: objectType}

	if objectType == "" {
		return res, &ValidationError{Field: "object", Reason: "is required"}
	}
	spec, ok := e.registry.Lookup(objectType)
	if !ok {
		return res, &UnknownEntityTypeError{Type: objectType}
	}
	res.Label = spec.Label

	key, ok, err := keyString(record[spec.KeyField])
	if err != nil {
		return res, &ValidationError{Field: spec.KeyField, Reason: err.Error()}
	}
	if !ok {
		return res, &MissingKeyError{Type: objectType, Field: spec.KeyField}
	}
	res.Key = key

	fields := make(map[string]any, len(record))
	for name, value := range record {
		if name == spec.KeyField {
			continue
		}
		if name == graph.KeyProperty {
			return res, &ValidationError{Field: name, Reason: "is reserved for the node key"}
		}
		v, err := scalar(value)
		if err != nil {
			return res, &ValidationError{Field: name, Reason: err.Error()}
		}
		fields[name] = v
	}

	// resolve every reference before writing so a malformed one fails the
	// record without partial writes
	edges := make([]graph.EdgeRef, 0, len(spec.References))
	for _, ref := range spec.References {
		target, ok, err := keyString(record[ref.Field])
		if err != nil {
			return res, &ValidationError{Field: ref.Field, Reason: err.Error()}
		}
		if !ok {
			continue
		}
		edges = append(edges, graph.EdgeRef{
			FromLabel: ref.TargetLabel,
			FromKey:   target,
			RelType:   ref.RelType,
			ToLabel:   spec.Label,
			ToKey:     key,
		})
	}

	if err := e.store.MergeNode(ctx, spec.Label, key, fields); err != nil {
		return res, err
	}
	res.NodeMerges = 1
	e.metrics.NodeMerged(spec.Label)

	for _, edge := range edges {
		if err := e.store.MergeEdge(ctx, edge); err != nil {
			return res, err
		}
		res.EdgeMerges++
		e.metrics.EdgeMerged(edge.RelType)
	}

	return res, nil
}
