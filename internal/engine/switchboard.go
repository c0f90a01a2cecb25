// Package engine implements the Switchboard registry: the live sets of
// features and experiments, flag evaluation with prevention hooks, payload
// ingestion, cache restore and the debug override layer.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/scrypster/switchboard/internal/cache"
	"github.com/scrypster/switchboard/internal/metrics"
	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/internal/storage/memory"
	"github.com/scrypster/switchboard/pkg/types"
)

// ErrNoTransport is returned by downloads when no Transport was configured.
var ErrNoTransport = errors.New("no configuration transport configured")

// Reserved FlagStore entry for the debugging marker.
const (
	debugStoreName = "switchboard"
	keyIsDebugging = "isDebugging"
)

// Transport fetches a raw configuration payload. Implementations own retry,
// rate limiting and request parameters.
type Transport interface {
	Download(ctx context.Context, serverURL, uuid, trackingID string, userData types.Values) ([]byte, error)
}

// Switchboard owns the active and inactive sets of features and experiments
// and answers enablement queries against them.
//
// All methods are safe for concurrent use. Prevention hooks are called
// without the registry lock held.
type Switchboard struct {
	// ingestMu serialises payload ingestion so the registry and the
	// ordinary cache always hold the same payload.
	ingestMu sync.Mutex

	mu                  sync.RWMutex
	features            types.Set[*types.Feature]
	inactiveFeatures    types.Set[*types.Feature]
	experiments         types.Set[*types.Experiment]
	inactiveExperiments types.Set[*types.Experiment]

	preventExperimentFromStarting func(name string) bool
	preventFeatureFromEnabling    func(name string) bool

	serverURL string
	uuid      string

	// Collaborators, fixed after New.
	store      types.FlagStore
	cache      *cache.Cache
	debugCache *cache.Cache
	transport  Transport
	analytics  types.Analytics
}

// Option configures a Switchboard.
type Option func(*Switchboard)

// WithBackend uses backend for lifecycle flags and for both the ordinary and
// the debug cache.
func WithBackend(backend storage.Backend) Option {
	return func(s *Switchboard) {
		s.store = backend
		s.cache = cache.New(backend, cache.BucketDefault)
		s.debugCache = cache.New(backend, cache.BucketDebug)
	}
}

// WithStore sets the store experiments keep their lifecycle flags in.
func WithStore(store types.FlagStore) Option {
	return func(s *Switchboard) { s.store = store }
}

// WithCache sets the ordinary runtime cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Switchboard) { s.cache = c }
}

// WithDebugCache sets the cache debug overrides are persisted in.
func WithDebugCache(c *cache.Cache) Option {
	return func(s *Switchboard) { s.debugCache = c }
}

// WithTransport sets the configuration transport.
func WithTransport(t Transport) Option {
	return func(s *Switchboard) { s.transport = t }
}

// WithAnalytics sets the analytics sink.
func WithAnalytics(a types.Analytics) Option {
	return func(s *Switchboard) { s.analytics = a }
}

// WithServer sets the server URL and the install UUID used by ActivateServer.
func WithServer(serverURL, uuid string) Option {
	return func(s *Switchboard) {
		s.serverURL = serverURL
		s.uuid = uuid
	}
}

// New creates an empty Switchboard. Without options everything is kept in
// process memory.
func New(opts ...Option) *Switchboard {
	s := &Switchboard{}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil || s.cache == nil || s.debugCache == nil {
		fallback := memory.NewStore()
		if s.store == nil {
			s.store = fallback
		}
		if s.cache == nil {
			s.cache = cache.New(fallback, cache.BucketDefault)
		}
		if s.debugCache == nil {
			s.debugCache = cache.New(fallback, cache.BucketDebug)
		}
	}

	// Restored entities must see this registry's store, guard and analytics.
	entityOpts := s.EntityOptions()
	s.cache = s.cache.WithOptions(entityOpts...)
	s.debugCache = s.debugCache.WithOptions(entityOpts...)
	return s
}

// EntityOptions binds an entity to this registry's flag store, prevention
// hook and analytics sink.
func (s *Switchboard) EntityOptions() []types.Option {
	opts := []types.Option{types.WithStore(s.store), types.WithGuard(s)}
	if s.analytics != nil {
		opts = append(opts, types.WithAnalytics(s.analytics))
	}
	return opts
}

// NewFeature builds a feature bound to this registry.
func (s *Switchboard) NewFeature(name string, values types.Values) (*types.Feature, error) {
	return types.NewFeature(name, values, s.EntityOptions()...)
}

// NewExperiment builds an experiment bound to this registry.
func (s *Switchboard) NewExperiment(name string, values types.Values, availableCohorts ...string) (*types.Experiment, error) {
	opts := append(s.EntityOptions(), types.WithAvailableCohorts(availableCohorts...))
	return types.NewExperiment(name, values, opts...)
}

// Store returns the lifecycle flag store.
func (s *Switchboard) Store() types.FlagStore { return s.store }

// Analytics returns the analytics sink, or nil.
func (s *Switchboard) Analytics() types.Analytics { return s.analytics }

// ---------------------------------------------------------------------------
// Prevention hooks
// ---------------------------------------------------------------------------

// SetPreventExperimentFromStarting installs the experiment veto. nil removes it.
func (s *Switchboard) SetPreventExperimentFromStarting(fn func(name string) bool) {
	s.mu.Lock()
	s.preventExperimentFromStarting = fn
	s.mu.Unlock()
}

// SetPreventFeatureFromEnabling installs the feature veto. nil removes it.
func (s *Switchboard) SetPreventFeatureFromEnabling(fn func(name string) bool) {
	s.mu.Lock()
	s.preventFeatureFromEnabling = fn
	s.mu.Unlock()
}

// PreventsStart implements types.StartGuard.
func (s *Switchboard) PreventsStart(name string) bool {
	s.mu.RLock()
	fn := s.preventExperimentFromStarting
	s.mu.RUnlock()
	return fn != nil && fn(name)
}

func (s *Switchboard) preventsFeature(name string) bool {
	s.mu.RLock()
	fn := s.preventFeatureFromEnabling
	s.mu.RUnlock()
	return fn != nil && fn(name)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// featureDecision reports whether name is active and not vetoed. decided is
// false when the caller's default applies.
func (s *Switchboard) featureDecision(name string) (decided bool) {
	s.mu.RLock()
	present := s.features.Contains(name)
	s.mu.RUnlock()
	if !present {
		metrics.RecordEvaluation(kindFeature, metrics.ResultDefault)
		return false
	}
	if s.preventsFeature(name) {
		metrics.RecordEvaluation(kindFeature, metrics.ResultPrevented)
		return false
	}
	return true
}

func (s *Switchboard) experimentDecision(name string) (decided bool) {
	s.mu.RLock()
	present := s.experiments.Contains(name)
	s.mu.RUnlock()
	if !present {
		metrics.RecordEvaluation(kindExperiment, metrics.ResultDefault)
		return false
	}
	if s.PreventsStart(name) {
		metrics.RecordEvaluation(kindExperiment, metrics.ResultPrevented)
		return false
	}
	return true
}

// IsEnabled is IsEnabledOr(name, false).
func (s *Switchboard) IsEnabled(name string) bool {
	return s.IsEnabledOr(name, false)
}

// IsEnabledOr reports true when the feature is active and not vetoed;
// otherwise it returns def.
func (s *Switchboard) IsEnabledOr(name string, def bool) bool {
	if !s.featureDecision(name) {
		return def
	}
	metrics.RecordEvaluation(kindFeature, metrics.ResultTrue)
	return true
}

// IsNotEnabled is IsNotEnabledOr(name, true).
func (s *Switchboard) IsNotEnabled(name string) bool {
	return s.IsNotEnabledOr(name, true)
}

// IsNotEnabledOr reports false when the feature is active and not vetoed;
// otherwise it returns def.
func (s *Switchboard) IsNotEnabledOr(name string, def bool) bool {
	if !s.featureDecision(name) {
		return def
	}
	metrics.RecordEvaluation(kindFeature, metrics.ResultFalse)
	return false
}

// IsIn is IsInOr(name, false).
func (s *Switchboard) IsIn(name string) bool {
	return s.IsInOr(name, false)
}

// IsInOr reports true when the experiment is active and not vetoed;
// otherwise it returns def.
func (s *Switchboard) IsInOr(name string, def bool) bool {
	if !s.experimentDecision(name) {
		return def
	}
	metrics.RecordEvaluation(kindExperiment, metrics.ResultTrue)
	return true
}

// IsNotIn is IsNotInOr(name, true).
func (s *Switchboard) IsNotIn(name string) bool {
	return s.IsNotInOr(name, true)
}

// IsNotInOr reports false when the experiment is active and not vetoed;
// otherwise it returns def.
func (s *Switchboard) IsNotInOr(name string, def bool) bool {
	if !s.experimentDecision(name) {
		return def
	}
	metrics.RecordEvaluation(kindExperiment, metrics.ResultFalse)
	return false
}

// Feature returns the active feature named name.
func (s *Switchboard) Feature(name string) (*types.Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Get(name)
}

// Experiment returns the active experiment named name.
func (s *Switchboard) Experiment(name string) (*types.Experiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.experiments.Get(name)
}

// InactiveFeature returns the inactive feature named name.
func (s *Switchboard) InactiveFeature(name string) (*types.Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inactiveFeatures.Get(name)
}

// InactiveExperiment returns the inactive experiment named name.
func (s *Switchboard) InactiveExperiment(name string) (*types.Experiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inactiveExperiments.Get(name)
}

// Features returns the active features sorted by name.
func (s *Switchboard) Features() []*types.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Items()
}

// InactiveFeatures returns the inactive features sorted by name.
func (s *Switchboard) InactiveFeatures() []*types.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inactiveFeatures.Items()
}

// Experiments returns the active experiments sorted by name.
func (s *Switchboard) Experiments() []*types.Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.experiments.Items()
}

// InactiveExperiments returns the inactive experiments sorted by name.
func (s *Switchboard) InactiveExperiments() []*types.Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inactiveExperiments.Items()
}

// Counts returns the sizes of the four sets.
func (s *Switchboard) Counts() SetCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *Switchboard) countsLocked() SetCounts {
	return SetCounts{
		Features:            s.features.Len(),
		InactiveFeatures:    s.inactiveFeatures.Len(),
		Experiments:         s.experiments.Len(),
		InactiveExperiments: s.inactiveExperiments.Len(),
	}
}

// ---------------------------------------------------------------------------
// Registry mutations
// ---------------------------------------------------------------------------

// AddFeature inserts f into the active set, replacing a feature of the same
// name. A feature of that name leaves the inactive set.
func (s *Switchboard) AddFeature(f *types.Feature) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactiveFeatures.Remove(f.Name())
	s.features.Insert(f)
}

// AddExperiment inserts e into the active set, replacing an experiment of the
// same name. An experiment of that name leaves the inactive set.
func (s *Switchboard) AddExperiment(e *types.Experiment) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inactiveExperiments.Remove(e.Name())
	s.experiments.Insert(e)
}

// RemoveFeature removes the feature from the active set only.
func (s *Switchboard) RemoveFeature(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features.Remove(name)
}

// RemoveExperiment removes the experiment from the active set only. Its
// lifecycle flags stay in the store.
func (s *Switchboard) RemoveExperiment(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments.Remove(name)
}

// ActivateFeature moves f into the active set.
func (s *Switchboard) ActivateFeature(f *types.Feature) {
	s.AddFeature(f)
}

// DeactivateFeature moves f out of the active set into the inactive set.
func (s *Switchboard) DeactivateFeature(f *types.Feature) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features.Remove(f.Name())
	s.inactiveFeatures.Insert(f)
}

// ToggleFeature deactivates the active feature with f's name, or activates f
// when no such feature is active. The lookup is by name.
func (s *Switchboard) ToggleFeature(f *types.Feature) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.features.Remove(f.Name()); ok {
		s.inactiveFeatures.Insert(current)
		return
	}
	s.inactiveFeatures.Remove(f.Name())
	s.features.Insert(f)
}

// ActivateExperiment moves e into the active set.
func (s *Switchboard) ActivateExperiment(e *types.Experiment) {
	s.AddExperiment(e)
}

// DeactivateExperiment moves e out of the active set into the inactive set.
func (s *Switchboard) DeactivateExperiment(e *types.Experiment) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments.Remove(e.Name())
	s.inactiveExperiments.Insert(e)
}

// ToggleExperiment deactivates the active experiment with e's name, or
// activates e when no such experiment is active. The lookup is by name.
func (s *Switchboard) ToggleExperiment(e *types.Experiment) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.experiments.Remove(e.Name()); ok {
		s.inactiveExperiments.Insert(current)
		return
	}
	s.inactiveExperiments.Remove(e.Name())
	s.experiments.Insert(e)
}

// DeleteFeature removes the feature from both sets.
func (s *Switchboard) DeleteFeature(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features.Remove(name)
	s.inactiveFeatures.Remove(name)
}

// DeleteExperiment removes the experiment from both sets. Lifecycle flags are
// kept; call ClearState on the experiment to reset them.
func (s *Switchboard) DeleteExperiment(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments.Remove(name)
	s.inactiveExperiments.Remove(name)
}

// FeatureExists reports whether a feature named name is active or inactive.
func (s *Switchboard) FeatureExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Contains(name) || s.inactiveFeatures.Contains(name)
}

// ExperimentExists reports whether an experiment named name is active or
// inactive.
func (s *Switchboard) ExperimentExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.experiments.Contains(name) || s.inactiveExperiments.Contains(name)
}

// RemoveAll empties all four sets.
func (s *Switchboard) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features.Clear()
	s.inactiveFeatures.Clear()
	s.experiments.Clear()
	s.inactiveExperiments.Clear()
}

// replace swaps in new contents for every set whose slice is non-nil.
func (s *Switchboard) replace(features, inactiveFeatures []*types.Feature, experiments, inactiveExperiments []*types.Experiment) SetCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	if features != nil {
		s.features.Replace(features)
	}
	if inactiveFeatures != nil {
		s.inactiveFeatures.Replace(inactiveFeatures)
	}
	if experiments != nil {
		s.experiments.Replace(experiments)
	}
	if inactiveExperiments != nil {
		s.inactiveExperiments.Replace(inactiveExperiments)
	}
	return s.countsLocked()
}

// ---------------------------------------------------------------------------
// Debugging marker
// ---------------------------------------------------------------------------

// IsDebugging reports whether debug overrides take precedence over downloads
// and the ordinary cache.
func (s *Switchboard) IsDebugging() bool {
	return s.store.Bool(debugStoreName, keyIsDebugging)
}

// SetDebugging persists the debugging marker.
func (s *Switchboard) SetDebugging(debugging bool) error {
	if err := s.store.SaveBool(debugStoreName, keyIsDebugging, debugging); err != nil {
		log.Printf("engine: failed to persist debugging marker: %v", err)
		return err
	}
	return nil
}
