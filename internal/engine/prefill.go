package engine

import (
	"context"
	"sync"

	"github.com/scrypster/switchboard/internal/cache"
	"github.com/scrypster/switchboard/pkg/types"
)

// PrefillController keeps a catalog of previously seen features and
// experiments so they can be re-added during debugging. The catalog lives in
// its own cache bucket and is rewritten after every change.
type PrefillController struct {
	cache *cache.Cache

	mu          sync.Mutex
	features    types.Set[*types.Feature]
	experiments types.Set[*types.Experiment]
}

// NewPrefillController loads the catalog from c.
func NewPrefillController(ctx context.Context, c *cache.Cache) *PrefillController {
	p := &PrefillController{cache: c}
	experiments, features := c.Restore(ctx, "")
	p.features.Replace(features)
	p.experiments.Replace(experiments)
	return p
}

// Features returns the catalogued features sorted by name.
func (p *PrefillController) Features() []*types.Feature {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.features.Items()
}

// Experiments returns the catalogued experiments sorted by name.
func (p *PrefillController) Experiments() []*types.Experiment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.experiments.Items()
}

// Feature returns the catalogued feature named name.
func (p *PrefillController) Feature(name string) (*types.Feature, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.features.Get(name)
}

// Experiment returns the catalogued experiment named name.
func (p *PrefillController) Experiment(name string) (*types.Experiment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.experiments.Get(name)
}

// FeaturesUnique returns the catalogued features not present in existing.
func (p *PrefillController) FeaturesUnique(existing []*types.Feature) []*types.Feature {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.features.Subtract(existing)
}

// ExperimentsUnique returns the catalogued experiments not present in
// existing.
func (p *PrefillController) ExperimentsUnique(existing []*types.Experiment) []*types.Experiment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.experiments.Subtract(existing)
}

// CanPrefillFeatures reports whether any catalogued feature is missing from
// existing.
func (p *PrefillController) CanPrefillFeatures(existing []*types.Feature) bool {
	return len(p.FeaturesUnique(existing)) > 0
}

// CanPrefillExperiments reports whether any catalogued experiment is missing
// from existing.
func (p *PrefillController) CanPrefillExperiments(existing []*types.Experiment) bool {
	return len(p.ExperimentsUnique(existing)) > 0
}

// AddFeatures catalogues features and persists the catalog.
func (p *PrefillController) AddFeatures(ctx context.Context, features ...*types.Feature) error {
	p.mu.Lock()
	for _, f := range features {
		p.features.Insert(f)
	}
	p.mu.Unlock()
	return p.cacheAll(ctx)
}

// AddExperiments catalogues experiments and persists the catalog.
func (p *PrefillController) AddExperiments(ctx context.Context, experiments ...*types.Experiment) error {
	p.mu.Lock()
	for _, e := range experiments {
		p.experiments.Insert(e)
	}
	p.mu.Unlock()
	return p.cacheAll(ctx)
}

// DeleteFeature drops a feature from the catalog.
func (p *PrefillController) DeleteFeature(ctx context.Context, name string) error {
	p.mu.Lock()
	p.features.Remove(name)
	p.mu.Unlock()
	return p.cacheAll(ctx)
}

// DeleteExperiment drops an experiment from the catalog.
func (p *PrefillController) DeleteExperiment(ctx context.Context, name string) error {
	p.mu.Lock()
	p.experiments.Remove(name)
	p.mu.Unlock()
	return p.cacheAll(ctx)
}

func (p *PrefillController) cacheAll(ctx context.Context) error {
	p.mu.Lock()
	experiments := p.experiments.Items()
	features := p.features.Items()
	p.mu.Unlock()
	return p.cache.Cache(ctx, experiments, features, "")
}
