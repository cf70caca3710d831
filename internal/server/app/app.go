// Package app wires configuration into the graph store, the event
// dispatcher and the projection engine. Both binaries start here.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/systemshift/crmgraph/internal/server/config"
	"github.com/systemshift/crmgraph/internal/server/events"
	"github.com/systemshift/crmgraph/internal/server/graph"
	"github.com/systemshift/crmgraph/internal/server/metrics"
	"github.com/systemshift/crmgraph/internal/server/projection"
	"github.com/systemshift/crmgraph/internal/server/registry"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Registry   *registry.Registry
	Store      graph.Store
	Engine     *projection.Engine
	Metrics    *metrics.Collector
	dispatcher *events.Dispatcher
	log        *zap.Logger
}

// eventSource is implemented by stores that publish write events
type eventSource interface {
	SetEventEmitter(fn events.Emitter)
}

// New opens the configured store and builds the engine
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		return nil, err
	}

	opts := []graph.Option{graph.WithEdgePolicy(cfg.Policy()), graph.WithLogger(log)}

	var (
		store  graph.Store
		source eventSource
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := graph.NewSQLite(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		store, source = s, s
	default:
		s, err := graph.NewNeo4j(ctx, graph.Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, opts...)
		if err != nil {
			return nil, err
		}
		store, source = s, s
	}

	a := &App{
		Config:   cfg,
		Registry: reg,
		Metrics:  metrics.NewCollector("crmgraph"),
		log:      log,
	}

	if cfg.NotifyWebhookURL != "" {
		a.dispatcher = events.NewDispatcher(
			events.NewWebhookNotifier(cfg.NotifyWebhookURL, log),
			cfg.NotifyBuffer,
			log,
		)
		source.SetEventEmitter(a.dispatcher.Emit)
		a.dispatcher.Start()
	}

	if cfg.BreakerEnabled {
		store = graph.NewBreaker(store, graph.DefaultBreakerConfig(cfg.Backend), log)
	}
	a.Store = store

	if cfg.EnsureConstraints {
		if err := store.EnsureConstraints(ctx, reg.Labels()); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("ensuring constraints: %w", err)
		}
	}

	a.Engine = projection.New(reg, store,
		projection.WithLogger(log),
		projection.WithMetrics(a.Metrics),
	)

	log.Info("graph store ready",
		zap.String("backend", cfg.Backend),
		zap.String("edge_policy", string(cfg.Policy())),
		zap.Strings("object_types", reg.Types()),
		zap.Bool("webhook_events", a.dispatcher != nil))

	return a, nil
}

// Close flushes pending events and closes the store
func (a *App) Close(ctx context.Context) error {
	if a.dispatcher != nil {
		a.dispatcher.Stop()
	}
	if a.Store != nil {
		return a.Store.Close(ctx)
	}
	return nil
}
