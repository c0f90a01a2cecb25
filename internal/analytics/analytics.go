// Package analytics provides types.Analytics sinks: a no-op sink, a log
// sink, a Prometheus sink and a fan-out over several sinks.
package analytics

import (
	"log"
	"sort"
	"strings"

	"github.com/scrypster/switchboard/internal/metrics"
	"github.com/scrypster/switchboard/pkg/types"
)

// Nop discards every notification.
type Nop struct{}

func (Nop) Entitled([]*types.Experiment, []*types.Feature) {}
func (Nop) TrackStarted(*types.Experiment) {}
func (Nop) TrackCompleted(*types.Experiment) {}
func (Nop) TrackExperiment(string, *types.Experiment, types.Values) {}
func (Nop) TrackFeature(string, *types.Feature, types.Values) {}

// Log writes one line per notification.
type Log struct {
	Logger *log.Logger // nil uses the standard logger
}

func (l Log) printf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Entitled implements types.Analytics.
func (l Log) Entitled(experiments []*types.Experiment, features []*types.Feature) {
	exps := make([]string, 0, len(experiments))
	for _, e := range experiments {
		exps = append(exps, e.Name()+"="+e.Cohort())
	}
	feats := make([]string, 0, len(features))
	for _, f := range features {
		feats = append(feats, f.Name())
	}
	sort.Strings(exps)
	sort.Strings(feats)
	l.printf("analytics: entitled experiments=[%s] features=[%s]", strings.Join(exps, ","), strings.Join(feats, ","))
}

// TrackStarted implements types.Analytics.
func (l Log) TrackStarted(e *types.Experiment) {
	l.printf("analytics: started %s cohort=%s", e.Name(), e.Cohort())
}

// TrackCompleted implements types.Analytics.
func (l Log) TrackCompleted(e *types.Experiment) {
	l.printf("analytics: completed %s cohort=%s", e.Name(), e.Cohort())
}

// TrackExperiment implements types.Analytics.
func (l Log) TrackExperiment(event string, e *types.Experiment, properties types.Values) {
	l.printf("analytics: %s experiment=%s cohort=%s properties=%v", event, e.Name(), e.Cohort(), properties.Interface())
}

// TrackFeature implements types.Analytics.
func (l Log) TrackFeature(event string, f *types.Feature, properties types.Values) {
	l.printf("analytics: %s feature=%s properties=%v", event, f.Name(), properties.Interface())
}

// Metrics counts notifications in Prometheus.
type Metrics struct{}

// Entitled implements types.Analytics.
func (Metrics) Entitled(experiments []*types.Experiment, features []*types.Feature) {
	metrics.SetEntitled(len(experiments), len(features))
}

// TrackStarted implements types.Analytics.
func (Metrics) TrackStarted(*types.Experiment) { metrics.RecordLifecycle("started") }

// TrackCompleted implements types.Analytics.
func (Metrics) TrackCompleted(*types.Experiment) { metrics.RecordLifecycle("completed") }

// TrackExperiment implements types.Analytics.
func (Metrics) TrackExperiment(string, *types.Experiment, types.Values) {
	metrics.RecordTrackedEvent("experiment")
}

// TrackFeature implements types.Analytics.
func (Metrics) TrackFeature(string, *types.Feature, types.Values) {
	metrics.RecordTrackedEvent("feature")
}

// Multi forwards every notification to each sink in order.
type Multi []types.Analytics

// Entitled implements types.Analytics.
func (m Multi) Entitled(experiments []*types.Experiment, features []*types.Feature) {
	for _, sink := range m {
		sink.Entitled(experiments, features)
	}
}

// TrackStarted implements types.Analytics.
func (m Multi) TrackStarted(e *types.Experiment) {
	for _, sink := range m {
		sink.TrackStarted(e)
	}
}

// TrackCompleted implements types.Analytics.
func (m Multi) TrackCompleted(e *types.Experiment) {
	for _, sink := range m {
		sink.TrackCompleted(e)
	}
}

// TrackExperiment implements types.Analytics.
func (m Multi) TrackExperiment(event string, e *types.Experiment, properties types.Values) {
	for _, sink := range m {
		sink.TrackExperiment(event, e, properties)
	}
}

// TrackFeature implements types.Analytics.
func (m Multi) TrackFeature(event string, f *types.Feature, properties types.Values) {
	for _, sink := range m {
		sink.TrackFeature(event, f, properties)
	}
}

var (
	_ types.Analytics = Nop{}
	_ types.Analytics = Log{}
	_ types.Analytics = Metrics{}
	_ types.Analytics = Multi(nil)
)
