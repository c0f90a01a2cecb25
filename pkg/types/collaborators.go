package types

import "sync"

// FlagStore persists the boolean lifecycle flags of an entity, keyed by the
// entity name and a flag key. Implementations must report false for flags
// that were never written and must be usable without explicit initialisation.
type FlagStore interface {
	// Bool returns the stored flag, or false if unset or unreadable.
	Bool(name, key string) bool

	// SaveBool stores a flag.
	SaveBool(name, key string, value bool) error

	// ResetBools sets every listed flag of name to false in a single
	// operation, so no reader observes a partial reset.
	ResetBools(name string, keys ...string) error
}

// StartGuard vetoes experiments from starting. The Switchboard implements it
// by consulting its prevention hook at call time.
type StartGuard interface {
	PreventsStart(experimentName string) bool
}

// Analytics receives fire-and-forget lifecycle notifications. Implementations
// must not block.
type Analytics interface {
	Entitled(experiments []*Experiment, features []*Feature)
	TrackStarted(experiment *Experiment)
	TrackCompleted(experiment *Experiment)
	TrackExperiment(event string, experiment *Experiment, properties Values)
	TrackFeature(event string, feature *Feature, properties Values)
}

// Option binds collaborators to a Feature or Experiment at construction.
type Option func(*bindings)

type bindings struct {
	store     FlagStore
	guard     StartGuard
	analytics Analytics
	cohorts   []string
}

// WithStore binds the flag store experiments read their lifecycle from.
// Without it an experiment keeps its flags in process memory.
func WithStore(store FlagStore) Option {
	return func(b *bindings) { b.store = store }
}

// WithGuard binds a start guard.
func WithGuard(guard StartGuard) Option {
	return func(b *bindings) { b.guard = guard }
}

// WithAnalytics binds an analytics sink.
func WithAnalytics(analytics Analytics) Option {
	return func(b *bindings) { b.analytics = analytics }
}

// WithAvailableCohorts sets the informational list of cohorts of an
// experiment. Ignored for features.
func WithAvailableCohorts(cohorts ...string) Option {
	return func(b *bindings) { b.cohorts = append([]string(nil), cohorts...) }
}

func applyOptions(opts []Option) bindings {
	var b bindings
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}
	if b.store == nil {
		b.store = &memoryFlags{flags: make(map[string]bool)}
	}
	return b
}

// memoryFlags is the process-local fallback store.
type memoryFlags struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func (m *memoryFlags) Bool(name, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[StoreKey(name, key)]
}

func (m *memoryFlags) SaveBool(name, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[StoreKey(name, key)] = value
	return nil
}

func (m *memoryFlags) ResetBools(name string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.flags[StoreKey(name, key)] = false
	}
	return nil
}
