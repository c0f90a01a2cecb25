package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluations.WithLabelValues("feature", ResultPrevented))
	RecordEvaluation("feature", ResultPrevented)
	RecordEvaluation("feature", ResultPrevented)
	after := testutil.ToFloat64(evaluations.WithLabelValues("feature", ResultPrevented))
	assert.Equal(t, before+2, after)
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(cacheLookups.WithLabelValues("switchboard", CacheMiss))
	RecordCacheLookup("switchboard", CacheMiss)
	assert.Equal(t, before+1, testutil.ToFloat64(cacheLookups.WithLabelValues("switchboard", CacheMiss)))
}

func TestSetEntitled(t *testing.T) {
	SetEntitled(3, 5)
	assert.Equal(t, 3.0, testutil.ToFloat64(entitled.WithLabelValues("experiment")))
	assert.Equal(t, 5.0, testutil.ToFloat64(entitled.WithLabelValues("feature")))
}

func TestRecordDownloadAndPayload(t *testing.T) {
	RecordDownload("success", 0.2)
	assert.Equal(t, 1, testutil.CollectAndCount(downloadLatency))

	before := testutil.ToFloat64(payloadsApplied.WithLabelValues("watcher"))
	RecordPayloadApplied("watcher")
	assert.Equal(t, before+1, testutil.ToFloat64(payloadsApplied.WithLabelValues("watcher")))

	RecordLifecycle("started")
	RecordTrackedEvent("feature")
	assert.GreaterOrEqual(t, testutil.ToFloat64(lifecycleEvents.WithLabelValues("started")), 1.0)
}
