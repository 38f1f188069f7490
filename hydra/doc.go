/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package hydra implements a client-side request load balancer for rate-limited HTTP APIs.
//
// A large batch of logical requests is fanned out across multiple independent credential
// slots ("apps"), each paced by its own rate limit, so that the aggregate throughput goes
// far beyond what a single credential could sustain. Failed calls are classified and
// retried with per-kind backoff policies, completed results are buffered in memory and
// flushed to durable storage in bounded batches, and a shutdown guard persists whatever
// remains buffered when the process is interrupted.
package hydra
