package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/pkg/types"
)

type recordingAnalytics struct {
	mu                  sync.Mutex
	entitledExperiments []string
	entitledFeatures    []string
	started             []string
	completed           []string
	events              []string
}

func (r *recordingAnalytics) Entitled(experiments []*types.Experiment, features []*types.Feature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entitledExperiments = r.entitledExperiments[:0]
	for _, e := range experiments {
		r.entitledExperiments = append(r.entitledExperiments, e.Name())
	}
	r.entitledFeatures = r.entitledFeatures[:0]
	for _, f := range features {
		r.entitledFeatures = append(r.entitledFeatures, f.Name())
	}
}

func (r *recordingAnalytics) TrackStarted(e *types.Experiment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, e.Name())
}

func (r *recordingAnalytics) TrackCompleted(e *types.Experiment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, e.Name())
}

func (r *recordingAnalytics) TrackExperiment(event string, e *types.Experiment, _ types.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event+":"+e.Name())
}

func (r *recordingAnalytics) TrackFeature(event string, f *types.Feature, _ types.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event+":"+f.Name())
}

// fakeTransport returns a canned payload and counts calls.
type fakeTransport struct {
	mu      sync.Mutex
	payload []byte
	err     error
	calls   int
	lastURL string
	lastID  string
}

func (f *fakeTransport) Download(_ context.Context, serverURL, uuid, _ string, _ types.Values) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastURL = serverURL
	f.lastID = uuid
	return f.payload, f.err
}

const scenarioPayload = `{
	"e1": {"isActive": true, "values": {"cohort": "A"}},
	"e2": {"isActive": false, "values": {"cohort": "B"}},
	"f1": {"isActive": true, "values": {}}
}`

func feature(t *testing.T, sw *Switchboard, name string) *types.Feature {
	t.Helper()
	f, err := sw.NewFeature(name, nil)
	require.NoError(t, err)
	return f
}

func experiment(t *testing.T, sw *Switchboard, name, cohort string) *types.Experiment {
	t.Helper()
	e, err := sw.NewExperiment(name, types.Values{types.KeyCohort: types.StringValue(cohort)})
	require.NoError(t, err)
	return e
}

func featureNames(items []*types.Feature) []string {
	out := []string{}
	for _, f := range items {
		out = append(out, f.Name())
	}
	return out
}

func experimentNames(items []*types.Experiment) []string {
	out := []string{}
	for _, e := range items {
		out = append(out, e.Name())
	}
	return out
}
