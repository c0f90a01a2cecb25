// Package transport downloads configuration payloads over HTTP and receives
// pushed payloads over a websocket.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/scrypster/switchboard/internal/properties"
	"github.com/scrypster/switchboard/pkg/types"
)

var (
	// ErrRateLimited is returned when downloads exceed the configured rate.
	ErrRateLimited = errors.New("configuration download rate limit exceeded")

	// ErrUnexpectedStatus is returned for any non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrNoServerURL is returned when no server URL was configured.
	ErrNoServerURL = errors.New("server URL is required")
)

const maxPayloadBytes = 10 << 20

// Config configures a Client.
type Config struct {
	// Timeout bounds a single request. Default: 10s
	Timeout time.Duration

	// RequestsPerSecond is the sustained download rate. Default: 1
	RequestsPerSecond float64

	// Burst is the maximum number of downloads allowed at once. Default: 3
	Burst int

	// Breaker configures the circuit breaker.
	Breaker BreakerConfig

	// App and Environment feed the default request parameters.
	App         properties.App
	Environment properties.Environment
}

// Client posts request parameters to the configuration server and returns
// the raw payload.
type Client struct {
	http    *http.Client
	breaker *CircuitBreaker
	limiter *rate.Limiter
	group   singleflight.Group
	timeout time.Duration
	app     properties.App
	env     properties.Environment
}

// NewClient creates a Client. Zero config fields take defaults.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1
	}
	if config.Burst <= 0 {
		config.Burst = 3
	}
	return &Client{
		http:    &http.Client{Timeout: config.Timeout},
		breaker: NewCircuitBreaker(config.Breaker),
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		timeout: config.Timeout,
		app:     config.App,
		env:     config.Environment,
	}
}

// Breaker exposes the circuit breaker for status reporting.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Download implements engine.Transport. Concurrent calls with identical
// arguments share one request. The shared request is detached from any one
// caller's context and bounded by the client timeout; each caller stops
// waiting when its own ctx is done.
func (c *Client) Download(ctx context.Context, serverURL, uuid, trackingID string, userData types.Values) ([]byte, error) {
	if serverURL == "" {
		return nil, ErrNoServerURL
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := properties.Parameters(uuid, trackingID, userData, c.app, c.env)
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("transport: encode parameters: %w", err)
	}

	key := serverURL + "\x00" + string(body)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if !c.limiter.Allow() {
			return nil, ErrRateLimited
		}
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.breaker.Execute(shared, func() ([]byte, error) {
			return c.post(shared, serverURL, body)
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) post(ctx context.Context, serverURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transport: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return data, nil
}
