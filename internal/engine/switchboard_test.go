package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/internal/storage/memory"
	"github.com/scrypster/switchboard/pkg/types"
)

func TestIsEnabledFollowsMembership(t *testing.T) {
	sw := New()

	assert.False(t, sw.IsEnabled("f1"))
	assert.True(t, sw.IsEnabledOr("f1", true), "absent feature yields the default")
	assert.True(t, sw.IsNotEnabled("f1"))

	sw.AddFeature(feature(t, sw, "f1"))

	assert.True(t, sw.IsEnabled("f1"))
	assert.True(t, sw.IsEnabledOr("f1", false))
	assert.False(t, sw.IsNotEnabled("f1"))
	assert.False(t, sw.IsNotEnabledOr("f1", true))
}

func TestPreventFeatureFromEnabling(t *testing.T) {
	sw := New()
	sw.AddFeature(feature(t, sw, "f1"))
	sw.AddFeature(feature(t, sw, "f2"))
	sw.SetPreventFeatureFromEnabling(func(name string) bool { return name == "f1" })

	assert.False(t, sw.IsEnabledOr("f1", false))
	assert.True(t, sw.IsEnabledOr("f1", true), "vetoed feature yields the default")
	assert.True(t, sw.IsNotEnabledOr("f1", true))
	assert.False(t, sw.IsNotEnabledOr("f1", false))
	assert.True(t, sw.IsEnabled("f2"))

	sw.SetPreventFeatureFromEnabling(nil)
	assert.True(t, sw.IsEnabled("f1"))
}

func TestIsInAndPreventExperiment(t *testing.T) {
	sw := New()
	assert.False(t, sw.IsIn("e1"))
	assert.True(t, sw.IsNotIn("e1"))

	e1 := experiment(t, sw, "e1", "A")
	sw.AddExperiment(e1)
	assert.True(t, sw.IsIn("e1"))
	assert.False(t, sw.IsNotIn("e1"))

	sw.SetPreventExperimentFromStarting(func(name string) bool { return name == "e1" })
	assert.False(t, sw.IsIn("e1"))
	assert.True(t, sw.IsInOr("e1", true))
	assert.True(t, sw.IsNotIn("e1"))
	assert.False(t, sw.IsNotInOr("e1", false))

	assert.False(t, e1.CanBeStarted(), "the hook is consulted at call time")
	assert.False(t, e1.Start())

	sw.SetPreventExperimentFromStarting(nil)
	assert.True(t, e1.Start())
}

func TestAddReplacesByName(t *testing.T) {
	sw := New()
	first, err := sw.NewFeature("f", types.Values{"v": types.NumberValue(1)})
	require.NoError(t, err)
	second, err := sw.NewFeature("f", types.Values{"v": types.NumberValue(2)})
	require.NoError(t, err)

	sw.AddFeature(first)
	sw.AddFeature(second)

	require.Len(t, sw.Features(), 1)
	got, ok := sw.Feature("f")
	require.True(t, ok)
	n, _ := got.Values()["v"].AsNumber()
	assert.Equal(t, 2.0, n, "last write wins")
}

func TestRemoveTouchesActiveSetOnly(t *testing.T) {
	sw := New()
	e := experiment(t, sw, "e", "A")
	sw.AddExperiment(e)
	require.True(t, e.Start())

	sw.DeactivateExperiment(experiment(t, sw, "other", "B"))
	sw.RemoveExperiment("e")
	sw.RemoveExperiment("other")

	_, ok := sw.Experiment("e")
	assert.False(t, ok)
	assert.True(t, sw.ExperimentExists("other"), "inactive set untouched")

	again := experiment(t, sw, "e", "A")
	sw.AddExperiment(again)
	assert.True(t, again.IsActive(), "persisted progress resumes after re-adding")
}

func TestActivateDeactivateKeepSetsDisjoint(t *testing.T) {
	sw := New()
	f := feature(t, sw, "f")

	sw.ActivateFeature(f)
	assert.Equal(t, []string{"f"}, featureNames(sw.Features()))
	assert.Empty(t, sw.InactiveFeatures())

	sw.DeactivateFeature(f)
	assert.Empty(t, sw.Features())
	assert.Equal(t, []string{"f"}, featureNames(sw.InactiveFeatures()))

	sw.ActivateFeature(feature(t, sw, "f"))
	assert.Equal(t, []string{"f"}, featureNames(sw.Features()))
	assert.Empty(t, sw.InactiveFeatures())

	e := experiment(t, sw, "e", "A")
	sw.DeactivateExperiment(e)
	sw.AddExperiment(e)
	assert.Equal(t, []string{"e"}, experimentNames(sw.Experiments()))
	assert.Empty(t, sw.InactiveExperiments())
}

func TestToggleIsSelfInverse(t *testing.T) {
	sw := New()
	sw.AddFeature(feature(t, sw, "f"))

	sw.ToggleFeature(feature(t, sw, "f"))
	assert.False(t, sw.IsEnabled("f"))
	assert.Equal(t, []string{"f"}, featureNames(sw.InactiveFeatures()))

	sw.ToggleFeature(feature(t, sw, "f"))
	assert.True(t, sw.IsEnabled("f"))
	assert.Empty(t, sw.InactiveFeatures())

	e := experiment(t, sw, "e", "A")
	sw.ToggleExperiment(e)
	assert.True(t, sw.IsIn("e"))
	sw.ToggleExperiment(experiment(t, sw, "e", "A"))
	assert.False(t, sw.IsIn("e"))
	assert.True(t, sw.ExperimentExists("e"))
}

func TestDeleteAndRemoveAll(t *testing.T) {
	sw := New()
	sw.AddFeature(feature(t, sw, "a"))
	sw.DeactivateFeature(feature(t, sw, "b"))
	sw.AddExperiment(experiment(t, sw, "e", "A"))

	sw.DeleteFeature("a")
	assert.False(t, sw.FeatureExists("a"))
	assert.True(t, sw.FeatureExists("b"))

	sw.RemoveAll()
	assert.Equal(t, SetCounts{}, sw.Counts())
}

func TestDebuggingMarkerPersists(t *testing.T) {
	backend := memory.NewStore()
	sw := New(WithBackend(backend))
	assert.False(t, sw.IsDebugging())

	require.NoError(t, sw.SetDebugging(true))
	assert.True(t, New(WithBackend(backend)).IsDebugging())
	assert.True(t, backend.Bool("switchboard", "isDebugging"))
}

func TestEntitiesBindRegistryAnalytics(t *testing.T) {
	rec := &recordingAnalytics{}
	sw := New(WithAnalytics(rec))

	e := experiment(t, sw, "e", "A")
	require.True(t, e.Start())
	require.True(t, e.Complete())
	feature(t, sw, "f").Track("tapped", nil)

	assert.Equal(t, []string{"e"}, rec.started)
	assert.Equal(t, []string{"e"}, rec.completed)
	assert.Equal(t, []string{"tapped:f"}, rec.events)
}

func TestDependenciesGateStart(t *testing.T) {
	sw := New()
	onboarding := experiment(t, sw, "onboarding", "A")
	upsell := experiment(t, sw, "upsell", "B")
	upsell.AddDependency(onboarding)

	assert.False(t, upsell.CanBeStarted())
	assert.False(t, upsell.Start())

	require.True(t, onboarding.Start())
	require.True(t, onboarding.Complete())
	assert.True(t, upsell.CanBeStarted())
	assert.True(t, upsell.Start())
}
