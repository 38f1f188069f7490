/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifierTransportRetriesForever(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retry.TransportInterval = 2 * time.Second
	c := NewClassifier(cfg)

	req := &PendingRequest{Method: http.MethodGet, Path: "/users/1"}
	for i := 0; i < 1000; i++ {
		req.Attempts++
		decision := c.Classify(req, FailureTransport)
		require.True(t, decision.Retry)
		require.Equal(t, 2*time.Second, decision.Delay)
	}
}

func TestClassifierBackoffMonotonicity(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retry.BackoffInitialInterval = 100 * time.Millisecond
	cfg.Retry.MaxBackoff = 1 * time.Second
	cfg.Retry.APIErrorMaxRetries = 20
	c := NewClassifier(cfg)

	req := &PendingRequest{Method: http.MethodGet, Path: "/users/1"}
	var prev time.Duration
	for i := 0; i < cfg.Retry.APIErrorMaxRetries; i++ {
		req.Attempts++
		decision := c.Classify(req, FailureAPI)
		require.True(t, decision.Retry)
		require.GreaterOrEqual(t, decision.Delay, prev, "backoff must never shrink")
		require.LessOrEqual(t, decision.Delay, cfg.Retry.MaxBackoff, "backoff must never exceed the cap")
		prev = decision.Delay
	}
	require.Equal(t, cfg.Retry.MaxBackoff, prev, "backoff must reach the cap")

	// Delays double from the initial interval: 100ms, 200ms, 400ms, 800ms, then capped at 1s.
	req = &PendingRequest{Method: http.MethodGet, Path: "/users/2", Attempts: 1}
	require.Equal(t, 100*time.Millisecond, c.Classify(req, FailureAPI).Delay)
	req.Attempts++
	require.Equal(t, 200*time.Millisecond, c.Classify(req, FailureAPI).Delay)
	req.Attempts++
	require.Equal(t, 400*time.Millisecond, c.Classify(req, FailureAPI).Delay)
}

func TestClassifierNotFoundRetryCeiling(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retry.NotFoundMaxRetries = 5
	c := NewClassifier(cfg)

	req := &PendingRequest{Method: http.MethodGet, Path: "/users/404"}
	retries := 0
	for {
		req.Attempts++
		decision := c.Classify(req, FailureNotFound)
		if !decision.Retry {
			break
		}
		retries++
		require.LessOrEqual(t, retries, cfg.Retry.NotFoundMaxRetries)
	}
	require.Equal(t, cfg.Retry.NotFoundMaxRetries, retries, "exactly the configured number of retries")
	require.Equal(t, cfg.Retry.NotFoundMaxRetries+1, req.Attempts)
}

func TestClassifierAPIErrorRetryCeiling(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retry.APIErrorMaxRetries = 3
	c := NewClassifier(cfg)

	req := &PendingRequest{Method: http.MethodGet, Path: "/users/1"}
	for i := 0; i < 3; i++ {
		req.Attempts++
		require.True(t, c.Classify(req, FailureAPI).Retry)
	}
	req.Attempts++
	require.False(t, c.Classify(req, FailureAPI).Retry)
}

func TestClassifierKindChangeRestartsBackoff(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Retry.BackoffInitialInterval = 100 * time.Millisecond
	cfg.Retry.NotFoundMaxRetries = 10
	cfg.Retry.APIErrorMaxRetries = 10
	c := NewClassifier(cfg)

	req := &PendingRequest{Method: http.MethodGet, Path: "/users/1"}
	req.Attempts++
	require.Equal(t, 100*time.Millisecond, c.Classify(req, FailureAPI).Delay)
	req.Attempts++
	require.Equal(t, 200*time.Millisecond, c.Classify(req, FailureAPI).Delay)

	// A different failure kind starts its own progression from the initial interval.
	req.Attempts++
	require.Equal(t, 100*time.Millisecond, c.Classify(req, FailureNotFound).Delay)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusOK, FailureNone},
		{http.StatusCreated, FailureNone},
		{http.StatusNoContent, FailureNone},
		{http.StatusNotFound, FailureNotFound},
		{http.StatusBadRequest, FailureAPI},
		{http.StatusUnauthorized, FailureAPI},
		{http.StatusTooManyRequests, FailureAPI},
		{http.StatusInternalServerError, FailureAPI},
		{http.StatusMovedPermanently, FailureAPI},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyStatus(tt.status), "status %d", tt.status)
	}
}
