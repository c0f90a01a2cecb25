package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/scrypster/switchboard/pkg/types"
)

// ErrInvalidPayload is returned when a configuration payload is not a JSON
// object.
var ErrInvalidPayload = errors.New("configuration payload is not a JSON object")

const (
	kindFeature    = "feature"
	kindExperiment = "experiment"
)

// Payload is a decoded configuration document: entity name to
// {"isActive": bool, "values": {...}}. Entries are kept as raw values so that
// malformed ones can be skipped individually.
type Payload map[string]types.Value

// ParsePayload decodes data. Only a top-level object is accepted; the shape of
// individual entries is checked during ingestion.
func ParsePayload(data []byte) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrInvalidPayload
	}
	var raw types.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	entries, ok := raw.AsMap()
	if !ok {
		return nil, ErrInvalidPayload
	}
	return Payload(entries), nil
}

// Names returns the entry names in sorted order.
func (p Payload) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeaturesFrom returns the features of payload whose isActive equals active.
// Malformed entries and entries that carry a cohort are skipped.
func FeaturesFrom(payload Payload, active bool, opts ...types.Option) []*types.Feature {
	return featuresFrom(context.Background(), payload, active, opts)
}

// ExperimentsFrom returns the experiments of payload whose isActive equals
// active. Malformed entries and entries without a cohort are skipped.
func ExperimentsFrom(payload Payload, active bool, opts ...types.Option) []*types.Experiment {
	return experimentsFrom(context.Background(), payload, active, opts)
}

// entryValues checks the common entry shape and returns its values when the
// entry belongs to the requested partition. reason is empty for a match.
func entryValues(entry types.Value, active bool) (values types.Values, reason string) {
	fields, ok := entry.AsMap()
	if !ok {
		return nil, ReasonNotAMapping
	}
	values, ok = fields[types.KeyValues].AsMap()
	if !ok {
		return nil, ReasonMissingValues
	}
	isActive, ok := fields.BoolFor(types.KeyIsActive)
	if !ok {
		return nil, ReasonMissingIsActive
	}
	if isActive != active {
		return nil, ReasonActiveMismatch
	}
	return values, ""
}

func featuresFrom(ctx context.Context, payload Payload, active bool, opts []types.Option) []*types.Feature {
	var out []*types.Feature
	for _, name := range payload.Names() {
		values, reason := entryValues(payload[name], active)
		if reason != "" {
			emitSkip(ctx, name, kindFeature, active, reason)
			continue
		}
		if _, isExperiment := values[types.KeyCohort]; isExperiment {
			continue
		}
		feature, err := types.NewFeature(name, values, opts...)
		if err != nil {
			emitToContext(ctx, EventEntitySkipped(name, kindFeature, active, ReasonInvalidEntity))
			continue
		}
		emitToContext(ctx, EventEntityAccepted(name, kindFeature, active))
		out = append(out, feature)
	}
	return out
}

func experimentsFrom(ctx context.Context, payload Payload, active bool, opts []types.Option) []*types.Experiment {
	var out []*types.Experiment
	for _, name := range payload.Names() {
		values, reason := entryValues(payload[name], active)
		if reason != "" {
			emitSkip(ctx, name, kindExperiment, active, reason)
			continue
		}
		if _, hasCohort := values[types.KeyCohort]; !hasCohort {
			continue
		}
		experiment, err := types.NewExperiment(name, values, opts...)
		if err != nil {
			emitToContext(ctx, EventEntitySkipped(name, kindExperiment, active, ReasonInvalidEntity))
			continue
		}
		emitToContext(ctx, EventEntityAccepted(name, kindExperiment, active))
		out = append(out, experiment)
	}
	return out
}

// emitSkip reports structural problems. A partition mismatch on an otherwise
// valid entry is not a skip and is not reported.
func emitSkip(ctx context.Context, name, kind string, active bool, reason string) {
	if reason == ReasonActiveMismatch {
		return
	}
	emitToContext(ctx, EventEntitySkipped(name, kind, active, reason))
}
