package cache

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/scrypster/switchboard/pkg/types"
)

const snapshotVersion = 1

type snapshot struct {
	Version     int                  `json:"version"`
	Experiments []experimentSnapshot `json:"experiments"`
	Features    []featureSnapshot    `json:"features"`
}

type experimentSnapshot struct {
	Name             string       `json:"name"`
	Values           types.Values `json:"values"`
	AvailableCohorts []string     `json:"available_cohorts,omitempty"`
}

type featureSnapshot struct {
	Name   string       `json:"name"`
	Values types.Values `json:"values"`
}

// encode serialises entity metadata. Lifecycle flags are not included; they
// live in the FlagStore.
func encode(experiments []*types.Experiment, features []*types.Feature) ([]byte, error) {
	snap := snapshot{
		Version:     snapshotVersion,
		Experiments: make([]experimentSnapshot, 0, len(experiments)),
		Features:    make([]featureSnapshot, 0, len(features)),
	}
	for _, e := range experiments {
		if e == nil {
			continue
		}
		snap.Experiments = append(snap.Experiments, experimentSnapshot{
			Name:             e.Name(),
			Values:           e.Values(),
			AvailableCohorts: e.AvailableCohorts(),
		})
	}
	for _, f := range features {
		if f == nil {
			continue
		}
		snap.Features = append(snap.Features, featureSnapshot{
			Name:   f.Name(),
			Values: f.Values(),
		})
	}
	return json.Marshal(snap)
}

// decode rebuilds entities, binding opts to each. Entries that no longer
// validate are dropped.
func decode(data []byte, opts []types.Option) ([]*types.Experiment, []*types.Feature, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("cache: malformed snapshot: %w", err)
	}
	if snap.Version > snapshotVersion {
		return nil, nil, fmt.Errorf("cache: unsupported snapshot version %d", snap.Version)
	}

	experiments := make([]*types.Experiment, 0, len(snap.Experiments))
	for _, es := range snap.Experiments {
		expOpts := append(append([]types.Option(nil), opts...), types.WithAvailableCohorts(es.AvailableCohorts...))
		e, err := types.NewExperiment(es.Name, es.Values, expOpts...)
		if err != nil {
			log.Printf("cache: dropping experiment %q: %v", es.Name, err)
			continue
		}
		experiments = append(experiments, e)
	}

	features := make([]*types.Feature, 0, len(snap.Features))
	for _, fs := range snap.Features {
		f, err := types.NewFeature(fs.Name, fs.Values, opts...)
		if err != nil {
			log.Printf("cache: dropping feature %q: %v", fs.Name, err)
			continue
		}
		features = append(features, f)
	}
	return experiments, features, nil
}
