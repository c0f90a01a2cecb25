package engine

import "time"

// TraceEventKind classifies each trace event by type.
type TraceEventKind string

const (
	// KindPayloadReceived is emitted when a payload enters ingestion.
	KindPayloadReceived TraceEventKind = "payload_received"

	// KindEntityAccepted is emitted once per entry that became an entity.
	KindEntityAccepted TraceEventKind = "entity_accepted"

	// KindEntitySkipped is emitted for every entry that was discarded.
	KindEntitySkipped TraceEventKind = "entity_skipped"

	// KindRegistryReplaced is emitted after the four sets were swapped in.
	KindRegistryReplaced TraceEventKind = "registry_replaced"
)

// Skip reasons reported in KindEntitySkipped events.
const (
	ReasonNotAMapping     = "entry is not a mapping"
	ReasonMissingValues   = "values missing or not a mapping"
	ReasonActiveMismatch  = "isActive does not match"
	ReasonMissingIsActive = "isActive missing"
	ReasonInvalidEntity   = "entity validation failed"
)

// TraceEvent is a single structured event emitted during ingestion.
type TraceEvent struct {
	// Kind identifies the event type.
	Kind TraceEventKind `json:"kind"`

	// At is the wall-clock time the event was recorded.
	At time.Time `json:"at"`

	// Entity is the payload key, populated for per-entry events.
	Entity string `json:"entity,omitempty"`

	// EntityKind is "feature" or "experiment".
	EntityKind string `json:"entity_kind,omitempty"`

	// Active is the partition the entry was evaluated for.
	Active bool `json:"active,omitempty"`

	// Reason explains entity_skipped events.
	Reason string `json:"reason,omitempty"`

	// Source names where the payload came from (download, watcher, stream).
	Source string `json:"source,omitempty"`

	// Count is the number of payload entries for payload_received.
	Count int `json:"count,omitempty"`

	// Counts holds the set sizes for registry_replaced.
	Counts *SetCounts `json:"counts,omitempty"`
}

// SetCounts are the sizes of the four registry sets.
type SetCounts struct {
	Features            int `json:"features"`
	InactiveFeatures    int `json:"inactive_features"`
	Experiments         int `json:"experiments"`
	InactiveExperiments int `json:"inactive_experiments"`
}

func newTraceEvent(kind TraceEventKind) TraceEvent {
	return TraceEvent{Kind: kind, At: time.Now()}
}

// EventPayloadReceived creates a payload_received event.
func EventPayloadReceived(source string, entries int) TraceEvent {
	e := newTraceEvent(KindPayloadReceived)
	e.Source = source
	e.Count = entries
	return e
}

// EventEntityAccepted creates an entity_accepted event.
func EventEntityAccepted(name, kind string, active bool) TraceEvent {
	e := newTraceEvent(KindEntityAccepted)
	e.Entity = name
	e.EntityKind = kind
	e.Active = active
	return e
}

// EventEntitySkipped creates an entity_skipped event.
func EventEntitySkipped(name, kind string, active bool, reason string) TraceEvent {
	e := newTraceEvent(KindEntitySkipped)
	e.Entity = name
	e.EntityKind = kind
	e.Active = active
	e.Reason = reason
	return e
}

// EventRegistryReplaced creates a registry_replaced event.
func EventRegistryReplaced(counts SetCounts) TraceEvent {
	e := newTraceEvent(KindRegistryReplaced)
	e.Counts = &counts
	return e
}
