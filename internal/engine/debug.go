package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrypster/switchboard/pkg/types"
)

// Debug cache namespaces.
const (
	debugNamespaceActive   = "active"
	debugNamespaceInactive = "inactive"
)

// DebugController applies local overrides to a Switchboard. Every mutation
// persists all four sets into the debug cache and marks the registry as
// debugging, so the overrides survive a restart and win over downloads.
type DebugController struct {
	sw *Switchboard
}

// NewDebugController wraps sw. When sw is already debugging, its sets are
// restored from the debug cache.
func NewDebugController(ctx context.Context, sw *Switchboard) *DebugController {
	if sw.IsDebugging() {
		sw.restoreDebug(ctx)
	}
	return &DebugController{sw: sw}
}

// Switchboard returns the wrapped registry.
func (d *DebugController) Switchboard() *Switchboard { return d.sw }

// CacheAll writes the four sets to the debug cache and sets the debugging
// marker.
func (d *DebugController) CacheAll(ctx context.Context) error {
	sw := d.sw
	if err := sw.debugCache.Cache(ctx, sw.Experiments(), sw.Features(), debugNamespaceActive); err != nil {
		return err
	}
	if err := sw.debugCache.Cache(ctx, sw.InactiveExperiments(), sw.InactiveFeatures(), debugNamespaceInactive); err != nil {
		return err
	}
	return sw.SetDebugging(true)
}

// ClearCacheAndSwitchboard wipes the debug cache and the registry and clears
// the debugging marker.
func (d *DebugController) ClearCacheAndSwitchboard(ctx context.Context) error {
	sw := d.sw
	err := errors.Join(
		sw.debugCache.Clear(ctx, debugNamespaceActive),
		sw.debugCache.Clear(ctx, debugNamespaceInactive),
	)
	sw.RemoveAll()
	if derr := sw.SetDebugging(false); derr != nil {
		err = errors.Join(err, derr)
	}
	if err != nil {
		return fmt.Errorf("engine: clear debug overrides: %w", err)
	}
	return nil
}

// FeatureExists reports whether a feature of that name is active or inactive.
func (d *DebugController) FeatureExists(f *types.Feature) bool {
	return f != nil && d.sw.FeatureExists(f.Name())
}

// ActivateFeature moves f into the active set.
func (d *DebugController) ActivateFeature(ctx context.Context, f *types.Feature) error {
	d.sw.ActivateFeature(f)
	return d.CacheAll(ctx)
}

// DeactivateFeature moves f into the inactive set.
func (d *DebugController) DeactivateFeature(ctx context.Context, f *types.Feature) error {
	d.sw.DeactivateFeature(f)
	return d.CacheAll(ctx)
}

// DeleteFeature removes f from both sets.
func (d *DebugController) DeleteFeature(ctx context.Context, f *types.Feature) error {
	if f != nil {
		d.sw.DeleteFeature(f.Name())
	}
	return d.CacheAll(ctx)
}

// ToggleFeature flips f between the active and inactive set by name.
func (d *DebugController) ToggleFeature(ctx context.Context, f *types.Feature) error {
	d.sw.ToggleFeature(f)
	return d.CacheAll(ctx)
}

// ChangeFeatureValues replaces the values of f.
func (d *DebugController) ChangeFeatureValues(ctx context.Context, f *types.Feature, values types.Values) error {
	if err := f.SetValues(values); err != nil {
		return err
	}
	return d.CacheAll(ctx)
}

// ExperimentExists reports whether an experiment of that name is active or
// inactive.
func (d *DebugController) ExperimentExists(e *types.Experiment) bool {
	return e != nil && d.sw.ExperimentExists(e.Name())
}

// ActivateExperiment moves e into the active set.
func (d *DebugController) ActivateExperiment(ctx context.Context, e *types.Experiment) error {
	d.sw.ActivateExperiment(e)
	return d.CacheAll(ctx)
}

// DeactivateExperiment moves e into the inactive set.
func (d *DebugController) DeactivateExperiment(ctx context.Context, e *types.Experiment) error {
	d.sw.DeactivateExperiment(e)
	return d.CacheAll(ctx)
}

// DeleteExperiment removes e from both sets. Lifecycle flags are kept.
func (d *DebugController) DeleteExperiment(ctx context.Context, e *types.Experiment) error {
	if e != nil {
		d.sw.DeleteExperiment(e.Name())
	}
	return d.CacheAll(ctx)
}

// ToggleExperiment flips e between the active and inactive set by name.
func (d *DebugController) ToggleExperiment(ctx context.Context, e *types.Experiment) error {
	d.sw.ToggleExperiment(e)
	return d.CacheAll(ctx)
}

// ChangeCohort assigns cohort to e.
func (d *DebugController) ChangeCohort(ctx context.Context, e *types.Experiment, cohort string) error {
	e.SetCohort(cohort)
	return d.CacheAll(ctx)
}

// ChangeExperimentValues replaces the values of e. The new values must still
// carry a cohort.
func (d *DebugController) ChangeExperimentValues(ctx context.Context, e *types.Experiment, values types.Values) error {
	if _, ok := values.StringFor(types.KeyCohort); !ok {
		return fmt.Errorf("experiment %q: %w", e.Name(), types.ErrMissingCohort)
	}
	e.SetValues(values)
	return d.CacheAll(ctx)
}

// UpdateAvailableCohorts replaces the informational cohort list of e.
func (d *DebugController) UpdateAvailableCohorts(ctx context.Context, e *types.Experiment, cohorts []string) error {
	e.SetAvailableCohorts(cohorts)
	return d.CacheAll(ctx)
}
