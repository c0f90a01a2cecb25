package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/internal/storage/memory"
	"github.com/scrypster/switchboard/pkg/types"
)

func TestDebugOverridesSurviveRestart(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()

	sw := New(WithBackend(backend))
	require.NoError(t, sw.ApplyJSON(ctx, []byte(scenarioPayload), SourceManual))

	debug := NewDebugController(ctx, sw)
	f1, _ := sw.Feature("f1")
	require.NoError(t, debug.DeactivateFeature(ctx, f1))
	e2, _ := sw.InactiveExperiment("e2")
	require.NoError(t, debug.ActivateExperiment(ctx, e2))
	require.NoError(t, debug.ChangeCohort(ctx, e2, "C"))
	assert.True(t, sw.IsDebugging())

	restarted := New(WithBackend(backend))
	restarted.Restore(ctx)
	assert.False(t, restarted.IsEnabled("f1"))
	assert.True(t, restarted.FeatureExists("f1"))
	assert.True(t, restarted.IsIn("e2"))
	got, _ := restarted.Experiment("e2")
	assert.Equal(t, "C", got.Cohort())

	// A controller built on a fresh registry restores the overrides too.
	fresh := New(WithBackend(backend))
	NewDebugController(ctx, fresh)
	assert.True(t, fresh.IsIn("e2"))
}

func TestDebugOverridesWinOverDownloads(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{payload: []byte(scenarioPayload)}
	sw := New(WithTransport(transport))
	debug := NewDebugController(ctx, sw)

	require.NoError(t, debug.ActivateFeature(ctx, feature(t, sw, "local_only")))
	require.NoError(t, sw.Download(ctx, "u", "", nil))

	assert.True(t, sw.IsEnabled("local_only"))
	assert.False(t, sw.IsEnabled("f1"))
	assert.Equal(t, 0, transport.calls)
}

func TestDebugToggleDeleteAndValues(t *testing.T) {
	ctx := context.Background()
	sw := New()
	debug := NewDebugController(ctx, sw)

	f := feature(t, sw, "f")
	assert.False(t, debug.FeatureExists(f))
	require.NoError(t, debug.ToggleFeature(ctx, f))
	assert.True(t, sw.IsEnabled("f"))
	require.NoError(t, debug.ToggleFeature(ctx, feature(t, sw, "f")))
	assert.False(t, sw.IsEnabled("f"))
	assert.True(t, debug.FeatureExists(f))

	err := debug.ChangeFeatureValues(ctx, f, types.Values{types.KeyCohort: types.StringValue("x")})
	assert.ErrorIs(t, err, types.ErrFeatureHasCohort)
	require.NoError(t, debug.ChangeFeatureValues(ctx, f, types.Values{"limit": types.NumberValue(5)}))

	require.NoError(t, debug.DeleteFeature(ctx, f))
	assert.False(t, debug.FeatureExists(f))

	e := experiment(t, sw, "e", "A")
	require.NoError(t, debug.ToggleExperiment(ctx, e))
	assert.True(t, debug.ExperimentExists(e))
	require.NoError(t, debug.UpdateAvailableCohorts(ctx, e, []string{"A", "B"}))
	assert.Equal(t, []string{"A", "B"}, e.AvailableCohorts())

	err = debug.ChangeExperimentValues(ctx, e, types.Values{"x": types.BoolValue(true)})
	assert.ErrorIs(t, err, types.ErrMissingCohort)
	require.NoError(t, debug.ChangeExperimentValues(ctx, e, types.Values{types.KeyCohort: types.StringValue("B")}))
	assert.Equal(t, "B", e.Cohort())

	require.NoError(t, debug.DeactivateExperiment(ctx, e))
	assert.False(t, sw.IsIn("e"))
	require.NoError(t, debug.DeleteExperiment(ctx, e))
	assert.False(t, debug.ExperimentExists(e))
}

func TestClearCacheAndSwitchboard(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	sw := New(WithBackend(backend))
	debug := NewDebugController(ctx, sw)
	require.NoError(t, debug.ActivateFeature(ctx, feature(t, sw, "f")))

	require.NoError(t, debug.ClearCacheAndSwitchboard(ctx))
	assert.False(t, sw.IsDebugging())
	assert.Equal(t, SetCounts{}, sw.Counts())

	_, err := backend.GetSnapshot(ctx, "switchboardDebug", "active")
	assert.Error(t, err)
}
