// Package metrics holds the Prometheus collectors for flag evaluation,
// lifecycle transitions, cache traffic and configuration downloads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "switchboard"

var (
	// evaluations counts flag queries.
	// Labels: kind (feature, experiment), result (true, false, default, prevented)
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "evaluations_total",
		Help:      "Total feature and experiment queries by outcome",
	}, []string{"kind", "result"})

	// lifecycleEvents counts experiment transitions reported to analytics.
	// Labels: event (started, completed)
	lifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "experiment",
		Name:      "lifecycle_total",
		Help:      "Total experiment lifecycle transitions",
	}, []string{"event"})

	// trackedEvents counts custom analytics events.
	// Labels: kind (feature, experiment)
	trackedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "events_total",
		Help:      "Total custom analytics events by entity kind",
	}, []string{"kind"})

	// entitled tracks the size of the last entitled report.
	// Labels: kind (feature, experiment)
	entitled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "entitled",
		Help:      "Entities in the most recent entitled report",
	}, []string{"kind"})

	// cacheLookups counts snapshot restores.
	// Labels: bucket, result (hit, miss, corrupt)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Total snapshot restores by outcome",
	}, []string{"bucket", "result"})

	// downloadLatency measures configuration download time.
	// Labels: status (success, error)
	downloadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "download_duration_seconds",
		Help:      "Configuration download latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"status"})

	// payloadsApplied counts payloads ingested by source.
	// Labels: source (download, watcher, stream)
	payloadsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "payloads_applied_total",
		Help:      "Total configuration payloads applied by source",
	}, []string{"source"})
)

// Evaluation results.
const (
	ResultTrue      = "true"
	ResultFalse     = "false"
	ResultDefault   = "default"
	ResultPrevented = "prevented"
)

// Cache lookup results.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheCorrupt = "corrupt"
)

// RecordEvaluation records one isEnabled/isIn style query.
func RecordEvaluation(kind, result string) {
	evaluations.WithLabelValues(kind, result).Inc()
}

// RecordLifecycle records an experiment transition.
func RecordLifecycle(event string) {
	lifecycleEvents.WithLabelValues(event).Inc()
}

// RecordTrackedEvent records a custom analytics event.
func RecordTrackedEvent(kind string) {
	trackedEvents.WithLabelValues(kind).Inc()
}

// SetEntitled records the size of an entitled report.
func SetEntitled(experiments, features int) {
	entitled.WithLabelValues("experiment").Set(float64(experiments))
	entitled.WithLabelValues("feature").Set(float64(features))
}

// RecordCacheLookup records a snapshot restore.
func RecordCacheLookup(bucket, result string) {
	cacheLookups.WithLabelValues(bucket, result).Inc()
}

// RecordDownload records a configuration download.
func RecordDownload(status string, durationSec float64) {
	downloadLatency.WithLabelValues(status).Observe(durationSec)
}

// RecordPayloadApplied records an ingested payload.
func RecordPayloadApplied(source string) {
	payloadsApplied.WithLabelValues(source).Inc()
}
