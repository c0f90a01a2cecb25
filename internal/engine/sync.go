package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/scrypster/switchboard/internal/metrics"
	"github.com/scrypster/switchboard/pkg/types"
)

// Payload sources.
const (
	SourceDownload = "download"
	SourceWatcher  = "watcher"
	SourceStream   = "stream"
	SourceManual   = "manual"
)

// Apply ingests payload: it replaces all four sets, caches the active sets
// in the ordinary cache and reports entitled experiments and active features
// to analytics. Concurrent calls are applied one at a time.
func (s *Switchboard) Apply(ctx context.Context, payload Payload) error {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	opts := s.EntityOptions()
	features := orEmpty(featuresFrom(ctx, payload, true, opts))
	inactiveFeatures := orEmpty(featuresFrom(ctx, payload, false, opts))
	experiments := orEmpty(experimentsFrom(ctx, payload, true, opts))
	inactiveExperiments := orEmpty(experimentsFrom(ctx, payload, false, opts))

	counts := s.replace(features, inactiveFeatures, experiments, inactiveExperiments)
	emitToContext(ctx, EventRegistryReplaced(counts))

	if err := s.cache.Cache(ctx, experiments, features, ""); err != nil {
		return fmt.Errorf("engine: cache payload: %w", err)
	}

	var entitled []*types.Experiment
	for _, e := range experiments {
		if e.IsEntitled() {
			entitled = append(entitled, e)
		}
	}
	if s.analytics != nil {
		s.analytics.Entitled(entitled, features)
	}
	return nil
}

// ApplyJSON parses data and applies it. While debugging, payloads are
// ignored so that overrides are not clobbered.
func (s *Switchboard) ApplyJSON(ctx context.Context, data []byte, source string) error {
	payload, err := ParsePayload(data)
	if err != nil {
		return err
	}
	emitToContext(ctx, EventPayloadReceived(source, len(payload)))

	if s.IsDebugging() {
		log.Printf("engine: debugging, ignoring %s payload with %d entries", source, len(payload))
		return nil
	}
	if err := s.Apply(ctx, payload); err != nil {
		return err
	}
	metrics.RecordPayloadApplied(source)
	return nil
}

// ApplyJSONWithTrace is ApplyJSON that also returns a report of what was
// accepted and skipped.
func (s *Switchboard) ApplyJSONWithTrace(ctx context.Context, data []byte, source string) (*IngestReport, error) {
	tc := NewTraceCollector()
	ctx = WithTraceCollector(ctx, tc)
	if err := s.ApplyJSON(ctx, data, source); err != nil {
		return nil, err
	}
	return BuildIngestReport(tc.Events(), tc.ElapsedMS()), nil
}

// Download fetches and applies the configuration for uuid. It returns
// immediately with nil while debugging: the debug cache wins.
func (s *Switchboard) Download(ctx context.Context, uuid, trackingID string, userData types.Values) error {
	data, err := s.fetch(ctx, uuid, trackingID, userData)
	if err != nil || data == nil {
		return err
	}
	return s.ApplyJSON(ctx, data, SourceDownload)
}

// DownloadWithTrace is Download that also reports what the payload
// contributed. The report is nil while debugging.
func (s *Switchboard) DownloadWithTrace(ctx context.Context, uuid, trackingID string, userData types.Values) (*IngestReport, error) {
	data, err := s.fetch(ctx, uuid, trackingID, userData)
	if err != nil || data == nil {
		return nil, err
	}
	return s.ApplyJSONWithTrace(ctx, data, SourceDownload)
}

// fetch downloads the raw payload. It returns nil data and no error while
// debugging.
func (s *Switchboard) fetch(ctx context.Context, uuid, trackingID string, userData types.Values) ([]byte, error) {
	if s.IsDebugging() {
		return nil, nil
	}
	if s.transport == nil {
		return nil, ErrNoTransport
	}

	s.mu.RLock()
	serverURL := s.serverURL
	s.mu.RUnlock()

	start := time.Now()
	data, err := s.transport.Download(ctx, serverURL, uuid, trackingID, userData)
	if err != nil {
		metrics.RecordDownload("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("engine: download configuration: %w", err)
	}
	metrics.RecordDownload("success", time.Since(start).Seconds())
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// DownloadConfiguration runs Download in the background and calls completion
// exactly once with its result. completion may be nil.
func (s *Switchboard) DownloadConfiguration(ctx context.Context, uuid, trackingID string, userData types.Values, completion func(error)) {
	go func() {
		err := s.Download(ctx, uuid, trackingID, userData)
		if completion != nil {
			completion(err)
		}
	}()
}

// ActivateServer records serverURL and downloads the configuration for the
// configured install UUID. completion is called exactly once.
func (s *Switchboard) ActivateServer(ctx context.Context, serverURL string, completion func(error)) {
	s.mu.Lock()
	s.serverURL = serverURL
	uuid := s.uuid
	s.mu.Unlock()

	s.DownloadConfiguration(ctx, uuid, "", nil, completion)
}

// ServerURL returns the server configurations are downloaded from.
func (s *Switchboard) ServerURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverURL
}

// Restore loads the registry at startup. While debugging the debug cache is
// used for all four sets; otherwise the ordinary cache supplies the active
// sets. Nothing is replaced for a snapshot that is absent.
func (s *Switchboard) Restore(ctx context.Context) {
	if s.IsDebugging() {
		s.restoreDebug(ctx)
		return
	}
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	experiments, features := s.cache.Restore(ctx, "")
	s.replace(features, nil, experiments, nil)
}

func (s *Switchboard) restoreDebug(ctx context.Context) {
	activeExperiments, activeFeatures := s.debugCache.Restore(ctx, debugNamespaceActive)
	inactiveExperiments, inactiveFeatures := s.debugCache.Restore(ctx, debugNamespaceInactive)
	s.replace(activeFeatures, inactiveFeatures, activeExperiments, inactiveExperiments)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
