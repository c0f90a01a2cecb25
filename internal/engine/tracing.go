package engine

import (
	"context"
	"time"
)

// contextKey is an unexported type for context keys owned by this package.
type contextKey string

const traceKey contextKey = "ingest_trace"

// TraceCollector accumulates TraceEvents for a single ingestion.
type TraceCollector struct {
	events    []TraceEvent
	startedAt time.Time
}

// NewTraceCollector returns a fresh collector.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{startedAt: time.Now()}
}

// Emit appends an event to the collector.
func (tc *TraceCollector) Emit(e TraceEvent) {
	tc.events = append(tc.events, e)
}

// Events returns the collected events in emission order.
func (tc *TraceCollector) Events() []TraceEvent {
	return tc.events
}

// ElapsedMS returns the elapsed time since the collector was created, in milliseconds.
func (tc *TraceCollector) ElapsedMS() int64 {
	return time.Since(tc.startedAt).Milliseconds()
}

// WithTraceCollector stores a collector in the context.
func WithTraceCollector(ctx context.Context, tc *TraceCollector) context.Context {
	return context.WithValue(ctx, traceKey, tc)
}

// TraceCollectorFromContext retrieves the collector from the context.
// Returns (nil, false) if none is present.
func TraceCollectorFromContext(ctx context.Context) (*TraceCollector, bool) {
	tc, ok := ctx.Value(traceKey).(*TraceCollector)
	return tc, ok
}

// emitToContext emits an event only when a collector is present in the context.
func emitToContext(ctx context.Context, e TraceEvent) {
	if tc, ok := TraceCollectorFromContext(ctx); ok {
		tc.Emit(e)
	}
}

// IngestReport summarises a traced ingestion.
type IngestReport struct {
	// Source is where the payload came from.
	Source string `json:"source"`

	// Entries is the number of top-level payload entries.
	Entries int `json:"entries"`

	// Accepted lists entity names per partition ("features", "inactive_features",
	// "experiments", "inactive_experiments").
	Accepted map[string][]string `json:"accepted"`

	// Skipped lists every discarded entry and why. An entry is evaluated once
	// per partition, so a malformed entry can appear more than once.
	Skipped []SkippedEntry `json:"skipped"`

	// Counts are the registry sizes after ingestion.
	Counts SetCounts `json:"counts"`

	// TimingMS is the total ingestion duration in milliseconds.
	TimingMS int64 `json:"timing_ms"`
}

// SkippedEntry is a payload entry that produced no entity.
type SkippedEntry struct {
	Entity     string `json:"entity"`
	EntityKind string `json:"entity_kind"`
	Active     bool   `json:"active"`
	Reason     string `json:"reason"`
}

func partition(kind string, active bool) string {
	name := kind + "s"
	if !active {
		name = "inactive_" + name
	}
	return name
}

// BuildIngestReport converts collected trace events into an IngestReport.
func BuildIngestReport(events []TraceEvent, elapsedMS int64) *IngestReport {
	report := &IngestReport{
		Accepted: make(map[string][]string),
		TimingMS: elapsedMS,
	}

	for _, e := range events {
		switch e.Kind {
		case KindPayloadReceived:
			report.Source = e.Source
			report.Entries = e.Count
		case KindEntityAccepted:
			key := partition(e.EntityKind, e.Active)
			report.Accepted[key] = append(report.Accepted[key], e.Entity)
		case KindEntitySkipped:
			report.Skipped = append(report.Skipped, SkippedEntry{
				Entity:     e.Entity,
				EntityKind: e.EntityKind,
				Active:     e.Active,
				Reason:     e.Reason,
			})
		case KindRegistryReplaced:
			if e.Counts != nil {
				report.Counts = *e.Counts
			}
		}
	}

	// Guarantee non-nil slices for clean JSON output.
	if report.Skipped == nil {
		report.Skipped = []SkippedEntry{}
	}

	return report
}
