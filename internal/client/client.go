package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
)

// Upstream labels used on upstream metrics.
const (
	upstreamWeather   = "weather"
	upstreamGeocoder  = "geocoder"
	upstreamKnowledge = "knowledge"
)

var (
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRateLimited       = errors.New("rate limited")
	// ErrOffline is returned in place of a network call while the effective
	// connectivity mode is Offline.
	ErrOffline = errors.New("offline")
)

// guarded runs fn through b when a breaker is attached.
func guarded(ctx context.Context, b *circuitbreaker.Breaker, fn func() error) error {
	if b == nil {
		return fn()
	}
	return b.Call(ctx, fn)
}

// maxBodyBytes caps upstream response bodies.
const maxBodyBytes = 4 << 20

// doJSON sends req and decodes a 2xx JSON body into out. Each call is timed
// and counted under upstream.
func doJSON(hc *http.Client, upstream string, req *http.Request, out interface{}) error {
	start := time.Now()
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(req.Context()); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(upstream, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(upstream, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(upstream, status).Inc()
	observability.UpstreamDuration.WithLabelValues(upstream, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
