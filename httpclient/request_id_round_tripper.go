/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

// RequestIDRoundTripper for X-Request-ID header to the request.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper

	// RequestIDProvider is a function that provides a request ID.
	// GetRequestIDFromContext is used by default, a new xid is generated when the context has none.
	RequestIDProvider func(ctx context.Context) string
}

// RequestIDRoundTripperOpts represents an options for RequestIDRoundTripper.
type RequestIDRoundTripperOpts struct {
	RequestIDProvider func(ctx context.Context) string
}

// NewRequestIDRoundTripper creates an HTTP transport with X-Request-ID header support.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{})
}

// NewRequestIDRoundTripperWithOpts creates an HTTP transport with X-Request-ID header support with options.
func NewRequestIDRoundTripperWithOpts(delegate http.RoundTripper, opts RequestIDRoundTripperOpts) http.RoundTripper {
	return &RequestIDRoundTripper{
		Delegate:          delegate,
		RequestIDProvider: opts.RequestIDProvider,
	}
}

// RoundTrip adds X-Request-ID header to the request.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("X-Request-ID") != "" {
		return rt.Delegate.RoundTrip(r)
	}

	requestID := ""
	if rt.RequestIDProvider != nil {
		requestID = rt.RequestIDProvider(r.Context())
	} else {
		requestID = GetRequestIDFromContext(r.Context())
	}
	if requestID == "" {
		requestID = xid.New().String()
	}

	r = CloneHTTPRequest(r)
	r.Header.Set("X-Request-ID", requestID)
	return rt.Delegate.RoundTrip(r)
}
