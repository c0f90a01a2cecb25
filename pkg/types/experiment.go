package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMissingCohort is returned when an experiment is built from values that
// lack a string cohort.
var ErrMissingCohort = errors.New("experiment values must contain a string cohort")

// Experiment is a named A/B test with a cohort assignment and a three-state
// lifecycle: entitled -> active -> completed.
//
// Identity is the name alone. Lifecycle flags are not part of the entity; they
// live in the bound FlagStore under the experiment name, so removing an
// experiment and adding it back resumes its progress unless ClearState is
// called.
type Experiment struct {
	name      string
	store     FlagStore
	guard     StartGuard
	analytics Analytics

	mu               sync.RWMutex
	values           Values
	availableCohorts []string
	dependencies     map[string]*Experiment
}

// NewExperiment builds an experiment. It fails unless values["cohort"] is a
// string.
func NewExperiment(name string, values Values, opts ...Option) (*Experiment, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := values.StringFor(KeyCohort); !ok {
		return nil, fmt.Errorf("experiment %q: %w", name, ErrMissingCohort)
	}
	b := applyOptions(opts)
	return &Experiment{
		name:             name,
		store:            b.store,
		guard:            b.guard,
		analytics:        b.analytics,
		values:           values.Clone(),
		availableCohorts: b.cohorts,
		dependencies:     make(map[string]*Experiment),
	}, nil
}

// Name returns the experiment name.
func (e *Experiment) Name() string { return e.name }

// Cohort returns the assigned cohort.
func (e *Experiment) Cohort() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if cohort, ok := e.values.StringFor(KeyCohort); ok {
		return cohort
	}
	return NoCohort
}

// Values returns a copy of the associated data.
func (e *Experiment) Values() Values {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.values.Clone()
}

// SetValues replaces the associated data wholesale.
func (e *Experiment) SetValues(values Values) {
	e.mu.Lock()
	e.values = values.Clone()
	e.mu.Unlock()
}

// SetCohort overrides the cohort, keeping the remaining values.
func (e *Experiment) SetCohort(cohort string) {
	e.mu.Lock()
	if e.values == nil {
		e.values = make(Values)
	}
	e.values[KeyCohort] = StringValue(cohort)
	e.mu.Unlock()
}

// AvailableCohorts returns the informational cohort list.
func (e *Experiment) AvailableCohorts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.availableCohorts...)
}

// SetAvailableCohorts replaces the informational cohort list.
func (e *Experiment) SetAvailableCohorts(cohorts []string) {
	e.mu.Lock()
	e.availableCohorts = append([]string(nil), cohorts...)
	e.mu.Unlock()
}

// AddDependency requires dep to be completed before e can start. An
// experiment cannot depend on itself.
func (e *Experiment) AddDependency(dep *Experiment) {
	if dep == nil || dep.name == e.name {
		return
	}
	e.mu.Lock()
	e.dependencies[dep.name] = dep
	e.mu.Unlock()
}

// RemoveDependency drops the dependency with the same name as dep.
func (e *Experiment) RemoveDependency(dep *Experiment) {
	if dep == nil {
		return
	}
	e.mu.Lock()
	delete(e.dependencies, dep.name)
	e.mu.Unlock()
}

// ClearDependencies drops every dependency.
func (e *Experiment) ClearDependencies() {
	e.mu.Lock()
	e.dependencies = make(map[string]*Experiment)
	e.mu.Unlock()
}

// Dependencies returns the dependencies sorted by name.
func (e *Experiment) Dependencies() []*Experiment {
	e.mu.RLock()
	deps := make([]*Experiment, 0, len(e.dependencies))
	for _, dep := range e.dependencies {
		deps = append(deps, dep)
	}
	e.mu.RUnlock()
	sort.Slice(deps, func(i, j int) bool { return deps[i].name < deps[j].name })
	return deps
}

// IsCompleted reports whether the completed flag is set.
func (e *Experiment) IsCompleted() bool {
	return e.store.Bool(e.name, KeyIsCompleted)
}

// IsActive reports whether the experiment was started and not yet completed.
func (e *Experiment) IsActive() bool {
	return e.store.Bool(e.name, KeyIsStarted) && !e.IsCompleted()
}

// IsEntitled reports whether the experiment could still be started: it is
// neither active nor completed.
func (e *Experiment) IsEntitled() bool {
	return !e.IsActive() && !e.IsCompleted()
}

// CanBeStarted reports whether Start would succeed.
func (e *Experiment) CanBeStarted() bool {
	if e.guard != nil && e.guard.PreventsStart(e.name) {
		return false
	}
	for _, dep := range e.Dependencies() {
		if !dep.IsCompleted() {
			return false
		}
	}
	return !e.IsActive() && !e.IsCompleted()
}

// CanBeCompleted reports whether Complete would succeed.
func (e *Experiment) CanBeCompleted() bool {
	return e.IsActive()
}

// State returns the derived lifecycle state.
func (e *Experiment) State() ExperimentState {
	switch {
	case e.IsCompleted():
		return StateCompleted
	case e.IsActive():
		return StateActive
	default:
		return StateEntitled
	}
}

// Start moves the experiment from entitled to active. It returns false and
// changes nothing when CanBeStarted is false or the flag cannot be saved.
func (e *Experiment) Start() bool {
	if !e.CanBeStarted() {
		return false
	}
	if err := e.store.SaveBool(e.name, KeyIsStarted, true); err != nil {
		return false
	}
	if e.analytics != nil && e.ShouldTrackAnalytics() {
		e.analytics.TrackStarted(e)
	}
	return true
}

// Complete moves the experiment from active to completed. It returns false
// and changes nothing when CanBeCompleted is false or the flag cannot be
// saved.
func (e *Experiment) Complete() bool {
	if !e.CanBeCompleted() {
		return false
	}
	if err := e.store.SaveBool(e.name, KeyIsCompleted, true); err != nil {
		return false
	}
	if e.analytics != nil && e.ShouldTrackAnalytics() {
		e.analytics.TrackCompleted(e)
	}
	return true
}

// ClearState resets the experiment to entitled.
func (e *Experiment) ClearState() error {
	if err := e.store.ResetBools(e.name, KeyIsStarted, KeyIsCompleted); err != nil {
		return fmt.Errorf("experiment %q: clear state: %w", e.name, err)
	}
	return nil
}

// ShouldTrackAnalytics is false only when values["disable_analytics"] is true.
func (e *Experiment) ShouldTrackAnalytics() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	disabled, ok := e.values.BoolFor(KeyDisableAnalytics)
	return !ok || !disabled
}

// Track reports an event for this experiment when analytics are enabled for
// it.
func (e *Experiment) Track(event string, properties Values) {
	if e.analytics == nil || !e.ShouldTrackAnalytics() {
		return
	}
	e.analytics.TrackExperiment(event, e, properties)
}

// Equal compares by name.
func (e *Experiment) Equal(other *Experiment) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.name == other.name
}

// String implements fmt.Stringer.
func (e *Experiment) String() string {
	return fmt.Sprintf("<Experiment: name: %q cohort: %q values: %v>", e.name, e.Cohort(), e.Values().Interface())
}
