package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher fans store events out to a sink on a background worker.
// Emit never blocks; events are dropped when the buffer is full.
type Dispatcher struct {
	sink      Sink
	eventChan chan Event
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// guards eventChan against sends after close
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher with the given buffer size
func NewDispatcher(sink Sink, buffer int, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sink:      sink,
		eventChan: make(chan Event, buffer),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins delivering events
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains queued events and waits for the worker to exit. Events
// emitted afterwards are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.eventChan)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// Emit queues an event for delivery. It matches the Emitter signature.
func (d *Dispatcher) Emit(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.log.Debug("event dropped after shutdown", zap.String("event_id", event.ID))
		return
	}

	select {
	case d.eventChan <- event:
	default:
		d.log.Warn("event buffer full, dropping event",
			zap.String("event_id", event.ID), zap.String("type", event.Type))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for event := range d.eventChan {
		if err := d.sink.Send(d.ctx, event); err != nil {
			d.log.Error("event delivery failed",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}
}
