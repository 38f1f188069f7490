/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultMinInvalidationInterval is a default value for AuthBearerRoundTripperOpts.MinInvalidationInterval.
const DefaultMinInvalidationInterval = 1 * time.Second

// AuthBearerRoundTripperError is returned in RoundTrip method of AuthBearerRoundTripper
// when the original request cannot be potentially retried.
type AuthBearerRoundTripperError struct {
	Inner error
}

func (e *AuthBearerRoundTripperError) Error() string {
	return fmt.Sprintf("auth bearer round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *AuthBearerRoundTripperError) Unwrap() error {
	return e.Inner
}

// AuthProvider provides auth information that is used for bearer authorization.
type AuthProvider interface {
	GetToken(ctx context.Context, scope ...string) (string, error)
}

// AuthProviderFunc is an adapter to allow the use of ordinary functions as AuthProvider.
type AuthProviderFunc func(ctx context.Context, scope ...string) (string, error)

// GetToken implements the AuthProvider interface.
func (f AuthProviderFunc) GetToken(ctx context.Context, scope ...string) (string, error) {
	return f(ctx, scope...)
}

// AuthProviderInvalidator is an optional interface that AuthProvider may implement
// to support invalidation of a cached token.
// When the server rejects a request with the token (401 by default),
// AuthBearerRoundTripper invalidates the cache and retries the request once with a fresh token.
type AuthProviderInvalidator interface {
	Invalidate()
}

// AuthBearerRoundTripperOpts is options for AuthBearerRoundTripper.
type AuthBearerRoundTripperOpts struct {
	// TokenScope is a scope that will be passed to AuthProvider.GetToken.
	TokenScope []string

	// MinInvalidationInterval is a minimum interval between two consecutive token cache invalidations.
	// It protects AuthProvider from invalidation storms when the server keeps rejecting requests.
	// If not set, DefaultMinInvalidationInterval is used.
	MinInvalidationInterval time.Duration

	// ShouldRefreshTokenAndRetry is called for each received response to decide
	// if the token should be refreshed and the request retried.
	// If not set, the token is refreshed only on the 401 (Unauthorized) status code.
	ShouldRefreshTokenAndRetry func(ctx context.Context, resp *http.Response) bool
}

// AuthBearerRoundTripper implements http.RoundTripper interface
// and sets Authorization HTTP header in all outgoing requests.
// If AuthProvider implements AuthProviderInvalidator,
// a rejected request is retried once with a freshly obtained token.
type AuthBearerRoundTripper struct {
	Delegate     http.RoundTripper
	AuthProvider AuthProvider
	opts         AuthBearerRoundTripperOpts

	invalidationMu   sync.Mutex
	lastInvalidation time.Time
}

// NewAuthBearerRoundTripper creates a new AuthBearerRoundTripper.
func NewAuthBearerRoundTripper(delegate http.RoundTripper, authProvider AuthProvider) *AuthBearerRoundTripper {
	return NewAuthBearerRoundTripperWithOpts(delegate, authProvider, AuthBearerRoundTripperOpts{})
}

// NewAuthBearerRoundTripperWithOpts creates a new AuthBearerRoundTripper with options.
func NewAuthBearerRoundTripperWithOpts(delegate http.RoundTripper, authProvider AuthProvider,
	opts AuthBearerRoundTripperOpts) *AuthBearerRoundTripper {
	if opts.MinInvalidationInterval == 0 {
		opts.MinInvalidationInterval = DefaultMinInvalidationInterval
	}
	if opts.ShouldRefreshTokenAndRetry == nil {
		opts.ShouldRefreshTokenAndRetry = func(ctx context.Context, resp *http.Response) bool {
			return resp.StatusCode == http.StatusUnauthorized
		}
	}
	return &AuthBearerRoundTripper{Delegate: delegate, AuthProvider: authProvider, opts: opts}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	origBody := req.Body
	if origBody != nil {
		defer func() {
			_ = origBody.Close() // Per RoundTripper contract.
		}()
	}

	if req.Header.Get("Authorization") != "" {
		return rt.Delegate.RoundTrip(req)
	}

	ctx := req.Context()
	token, err := rt.AuthProvider.GetToken(ctx, rt.opts.TokenScope...)
	if err != nil {
		return nil, &AuthBearerRoundTripperError{Inner: err}
	}

	resp, err := rt.doRequest(req, token)
	if err != nil {
		return resp, err
	}
	if !rt.opts.ShouldRefreshTokenAndRetry(ctx, resp) {
		return resp, nil
	}
	if _, ok := rt.AuthProvider.(AuthProviderInvalidator); !ok {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// The body has already been consumed and cannot be rewound.
		return resp, nil
	}

	rt.invalidateToken(ctx, token)
	newToken, err := rt.AuthProvider.GetToken(ctx, rt.opts.TokenScope...)
	if err != nil || newToken == token {
		return resp, nil
	}

	// Drain and close the first response body so that the underlying connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return rt.doRequest(req, newToken)
}

// doRequest sends a copy of the request authorized with the given token.
// If GetBody is available, a fresh body is obtained for each attempt
// and the original request body is left untouched.
func (rt *AuthBearerRoundTripper) doRequest(req *http.Request, token string) (*http.Response, error) {
	authorizedReq := req.Clone(req.Context()) // Per RoundTripper contract.
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, &AuthBearerRoundTripperError{Inner: err}
		}
		authorizedReq.Body = body
	}
	authorizedReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	return rt.Delegate.RoundTrip(authorizedReq)
}

// invalidateToken invalidates the cached token if it is still the one the rejected request was sent with.
// Invalidations are throttled by MinInvalidationInterval,
// and concurrent rejections of the same token lead to a single invalidation.
func (rt *AuthBearerRoundTripper) invalidateToken(ctx context.Context, usedToken string) {
	invalidator, ok := rt.AuthProvider.(AuthProviderInvalidator)
	if !ok {
		return
	}
	rt.invalidationMu.Lock()
	defer rt.invalidationMu.Unlock()
	if time.Since(rt.lastInvalidation) < rt.opts.MinInvalidationInterval {
		return
	}
	currentToken, err := rt.AuthProvider.GetToken(ctx, rt.opts.TokenScope...)
	if err != nil || currentToken != usedToken {
		// The token has already been refreshed by a concurrent request.
		return
	}
	invalidator.Invalidate()
	rt.lastInvalidation = time.Now()
}
