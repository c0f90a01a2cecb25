package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/switchboard/internal/properties"
	"github.com/scrypster/switchboard/pkg/types"
)

const payload = `{"f1": {"isActive": true, "values": {}}}`

func TestDownloadPostsParameters(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(Config{App: properties.App{ID: "com.example"}})
	data, err := client.Download(context.Background(), server.URL, "uuid-1", "track-1",
		types.Values{"plan": types.StringValue("pro")})
	require.NoError(t, err)

	assert.JSONEq(t, payload, string(data))
	assert.Equal(t, "uuid-1", got[properties.KeyUUID])
	assert.Equal(t, "track-1", got[properties.KeyTrackingID])
	assert.Equal(t, "com.example", got[properties.KeyAppID])
	assert.Equal(t, "pro", got["plan"])
}

func TestDownloadUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(Config{}).Download(context.Background(), server.URL, "u", "", nil)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestDownloadRequiresServerURL(t *testing.T) {
	_, err := NewClient(Config{}).Download(context.Background(), "", "u", "", nil)
	assert.ErrorIs(t, err, ErrNoServerURL)
}

func TestDownloadRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(Config{RequestsPerSecond: 0.001, Burst: 1})
	_, err := client.Download(context.Background(), server.URL, "a", "", nil)
	require.NoError(t, err)
	_, err = client.Download(context.Background(), server.URL, "b", "", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestCircuitOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{
		RequestsPerSecond: 1000,
		Burst:             100,
		Breaker:           BreakerConfig{MaxFailures: 2, Timeout: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Download(ctx, server.URL, "u", "", nil)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	}
	_, err := client.Download(ctx, server.URL, "u", "", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "open", client.Breaker().State())

	stats := client.Breaker().Stats()
	assert.Equal(t, uint64(3), stats.TotalRequests)
	assert.Equal(t, uint64(3), stats.TotalFailures)
}

func TestConcurrentIdenticalDownloadsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(Config{RequestsPerSecond: 1000, Burst: 100})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := client.Download(context.Background(), server.URL, "same", "", nil)
			assert.NoError(t, err)
			assert.JSONEq(t, payload, string(data))
		}()
	}

	// Give every goroutine time to join the in-flight call.
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestCircuitBreakerRespectsCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker(BreakerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cb.Execute(ctx, func() ([]byte, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, "closed", cb.State())
}

func TestCancelledCallerDoesNotFailSharedDownload(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(Config{RequestsPerSecond: 1000, Burst: 100})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Download(firstCtx, server.URL, "same", "", nil)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		data []byte
		err  error
	}
	second := make(chan result, 1)
	go func() {
		data, err := client.Download(context.Background(), server.URL, "same", "", nil)
		second <- result{data, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.JSONEq(t, payload, string(res.data))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, uint64(0), client.Breaker().Stats().TotalFailures)
}
