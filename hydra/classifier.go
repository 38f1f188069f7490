/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-hydra/retry"
)

// Decision is the classifier's verdict for a failed attempt:
// either retry after Delay, or finalize the request as a terminal failure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Classifier decides how failed dispatch attempts are retried.
//
// Transport failures retry forever at a fixed interval: they represent presumed-transient
// network conditions, and a long-running batch job should survive an outage rather than
// abandon work. Not-found and other API failures retry a bounded number of times with
// exponential backoff, doubling from the initial interval up to the configured cap.
type Classifier struct {
	transportInterval  time.Duration
	notFoundMaxRetries int
	apiMaxRetries      int
	exponential        retry.Policy
}

// NewClassifier creates a classifier from the retry-related configuration values.
func NewClassifier(cfg *Config) *Classifier {
	initialInterval := cfg.Retry.BackoffInitialInterval
	maxBackoff := cfg.Retry.MaxBackoff
	return &Classifier{
		transportInterval:  cfg.Retry.TransportInterval,
		notFoundMaxRetries: cfg.Retry.NotFoundMaxRetries,
		apiMaxRetries:      cfg.Retry.APIErrorMaxRetries,
		exponential: retry.PolicyFunc(func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initialInterval
			b.Multiplier = 2
			b.RandomizationFactor = 0
			b.MaxInterval = maxBackoff
			b.MaxElapsedTime = 0
			b.Reset()
			return b
		}),
	}
}

// Classify returns the retry decision for a request whose latest attempt failed with the given kind.
// The request's attempt counter must already include the failed attempt.
func (c *Classifier) Classify(req *PendingRequest, kind FailureKind) Decision {
	switch kind {
	case FailureTransport:
		return Decision{Retry: true, Delay: c.transportInterval}
	case FailureNotFound:
		return c.classifyBounded(req, kind, c.notFoundMaxRetries)
	default:
		return c.classifyBounded(req, kind, c.apiMaxRetries)
	}
}

func (c *Classifier) classifyBounded(req *PendingRequest, kind FailureKind, maxRetries int) Decision {
	if req.Attempts-1 >= maxRetries {
		return Decision{}
	}
	// Backoff state lives on the request so delays keep growing across its retries.
	// A kind change (e.g. transport outage in the middle of API errors) restarts the progression.
	if req.backoffState == nil || req.backoffKind != kind {
		req.backoffState = c.exponential.NewBackOff()
		req.backoffKind = kind
	}
	delay := req.backoffState.NextBackOff()
	if delay == backoff.Stop {
		return Decision{}
	}
	return Decision{Retry: true, Delay: delay}
}

// ClassifyStatus maps an HTTP status code to a failure kind:
// 2xx is a success, 404 is a not-found failure, everything else is an API failure.
func ClassifyStatus(code int) FailureKind {
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return FailureNone
	case code == http.StatusNotFound:
		return FailureNotFound
	default:
		return FailureAPI
	}
}
