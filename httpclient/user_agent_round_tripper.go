/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// UserAgentUpdateStrategy tells UserAgentRoundTripper how to combine its configured
// value with a User-Agent header already present on the request.
type UserAgentUpdateStrategy int

const (
	// UserAgentUpdateStrategySetIfEmpty writes the header only when the request has none.
	UserAgentUpdateStrategySetIfEmpty UserAgentUpdateStrategy = iota

	// UserAgentUpdateStrategyAppend puts the configured value after the existing one.
	UserAgentUpdateStrategyAppend

	// UserAgentUpdateStrategyPrepend puts the configured value before the existing one.
	UserAgentUpdateStrategyPrepend
)

// UserAgentRoundTripper is an http.RoundTripper that stamps outgoing requests
// with a User-Agent header.
type UserAgentRoundTripper struct {
	Delegate       http.RoundTripper
	UserAgent      string
	UpdateStrategy UserAgentUpdateStrategy
}

// UserAgentRoundTripperOpts holds optional settings for UserAgentRoundTripper.
type UserAgentRoundTripperOpts struct {
	UpdateStrategy UserAgentUpdateStrategy
}

// NewUserAgentRoundTripper creates a new UserAgentRoundTripper.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) *UserAgentRoundTripper {
	return NewUserAgentRoundTripperWithOpts(delegate, userAgent, UserAgentRoundTripperOpts{})
}

// NewUserAgentRoundTripperWithOpts creates a new UserAgentRoundTripper with specified options.
func NewUserAgentRoundTripperWithOpts(
	delegate http.RoundTripper, userAgent string, opts UserAgentRoundTripperOpts,
) *UserAgentRoundTripper {
	return &UserAgentRoundTripper{delegate, userAgent, opts.UpdateStrategy}
}

func (rt *UserAgentRoundTripper) combine(existing string) string {
	if existing == "" {
		return rt.UserAgent
	}
	switch rt.UpdateStrategy {
	case UserAgentUpdateStrategyAppend:
		return existing + " " + rt.UserAgent
	case UserAgentUpdateStrategyPrepend:
		return rt.UserAgent + " " + existing
	default:
		return existing
	}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	userAgent := rt.combine(req.Header.Get("User-Agent"))
	if userAgent == req.Header.Get("User-Agent") {
		return rt.Delegate.RoundTrip(req)
	}

	req = req.Clone(req.Context()) // Per RoundTripper contract.
	req.Header.Set("User-Agent", userAgent)
	return rt.Delegate.RoundTrip(req)
}
