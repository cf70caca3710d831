package events

import (
	"time"
)

// Event represents a write the graph store applied
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // node.merged, edge.merged
	Timestamp time.Time `json:"timestamp"`

	// Node event fields
	Label  string         `json:"label,omitempty"`
	Key    string         `json:"key,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`

	// Edge event fields
	FromLabel string `json:"from_label,omitempty"`
	FromKey   string `json:"from_key,omitempty"`
	RelType   string `json:"rel_type,omitempty"`
	ToLabel   string `json:"to_label,omitempty"`
	ToKey     string `json:"to_key,omitempty"`
}

// Event type constants
const (
	EventNodeMerged = "node.merged"
	EventEdgeMerged = "edge.merged"
)

// Emitter receives events from a graph store
type Emitter func(Event)
