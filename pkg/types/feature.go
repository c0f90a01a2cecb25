package types

import (
	"errors"
	"fmt"
	"sync"
)

// ErrFeatureHasCohort is returned when a feature is built from values that
// carry a cohort. A cohort marks the entry as an experiment.
var ErrFeatureHasCohort = errors.New("feature values must not contain a cohort")

// ErrEmptyName is returned when an entity is built without a name.
var ErrEmptyName = errors.New("entity name is required")

// Feature is a named boolean capability flag with optional associated data.
// Identity is the name alone: two features with the same name are the same
// feature regardless of their values.
type Feature struct {
	name      string
	analytics Analytics

	mu     sync.RWMutex
	values Values // nil when the feature carries no data
}

// NewFeature builds a feature. It fails when values contains a cohort key.
func NewFeature(name string, values Values, opts ...Option) (*Feature, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := values[KeyCohort]; ok {
		return nil, fmt.Errorf("feature %q: %w", name, ErrFeatureHasCohort)
	}
	b := applyOptions(opts)
	return &Feature{
		name:      name,
		analytics: b.analytics,
		values:    values.Clone(),
	}, nil
}

// Name returns the feature name.
func (f *Feature) Name() string { return f.name }

// Values returns a copy of the associated data, or nil if there is none.
func (f *Feature) Values() Values {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values.Clone()
}

// SetValues replaces the associated data. The same cohort rule as NewFeature
// applies.
func (f *Feature) SetValues(values Values) error {
	if _, ok := values[KeyCohort]; ok {
		return fmt.Errorf("feature %q: %w", f.name, ErrFeatureHasCohort)
	}
	f.mu.Lock()
	f.values = values.Clone()
	f.mu.Unlock()
	return nil
}

// ShouldTrackAnalytics is false only when values["disable_analytics"] is true.
func (f *Feature) ShouldTrackAnalytics() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	disabled, ok := f.values.BoolFor(KeyDisableAnalytics)
	return !ok || !disabled
}

// Track reports an event for this feature when analytics are enabled for it.
func (f *Feature) Track(event string, properties Values) {
	if f.analytics == nil || !f.ShouldTrackAnalytics() {
		return
	}
	f.analytics.TrackFeature(event, f, properties)
}

// Equal compares by name.
func (f *Feature) Equal(other *Feature) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.name == other.name
}

// String implements fmt.Stringer.
func (f *Feature) String() string {
	return fmt.Sprintf("<Feature: name: %q values: %v>", f.name, f.Values().Interface())
}
