/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

// FailureKind classifies a failed dispatch attempt.
type FailureKind string

// Failure kinds.
const (
	// FailureNone marks a successful dispatch.
	FailureNone FailureKind = ""

	// FailureTransport means no response was received from the server at all
	// (timeout, connection refused, DNS error and so on).
	FailureTransport FailureKind = "transport"

	// FailureNotFound means the server responded that the resource does not exist.
	FailureNotFound FailureKind = "not_found"

	// FailureAPI means any other non-success response or application-level error.
	FailureAPI FailureKind = "api"
)

// Result is a terminal record of one logical request:
// either a successful response or a terminal failure after retries were exhausted.
type Result struct {
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	StatusCode int         `json:"statusCode,omitempty"`
	Attempts   int         `json:"attempts"`
	Failure    FailureKind `json:"failure,omitempty"`
	Body       string      `json:"body,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Succeeded reports whether the request eventually completed successfully.
func (r Result) Succeeded() bool {
	return r.Failure == FailureNone
}

// Batch is an ordered group of results accumulated since the last flush.
type Batch []Result
