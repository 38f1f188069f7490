/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package auth provides token sources for authorizing outgoing HTTP requests.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultExpirationSkew is a default value for ClientCredentialsOpts.ExpirationSkew.
const DefaultExpirationSkew = 30 * time.Second

// fallbackTokenLifetime is used when the identity provider omits expires_in in the token response.
const fallbackTokenLifetime = 1 * time.Hour

// maxTokenResponseSize limits how much of the token endpoint response is read.
const maxTokenResponseSize = 1024 * 1024

// ClientCredentials is a token source implementing the OAuth2 client credentials flow.
// The obtained token is cached until it expires or is invalidated,
// and concurrent callers share a single request to the token endpoint.
// It implements httpclient.AuthProvider and httpclient.AuthProviderInvalidator.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	scope        []string
	skew         time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// ClientCredentialsOpts is options for ClientCredentials.
type ClientCredentialsOpts struct {
	// Scope is requested from the token endpoint along with the credentials.
	Scope []string

	// HTTPClient is used for requests to the token endpoint. http.DefaultClient is used if not set.
	HTTPClient *http.Client

	// ExpirationSkew makes the cached token expire that much earlier than the endpoint reported,
	// so that a token is never used right at the edge of its lifetime.
	// If not set, DefaultExpirationSkew is used.
	ExpirationSkew time.Duration
}

// NewClientCredentials creates a new ClientCredentials token source.
func NewClientCredentials(tokenURL, clientID, clientSecret string) *ClientCredentials {
	return NewClientCredentialsWithOpts(tokenURL, clientID, clientSecret, ClientCredentialsOpts{})
}

// NewClientCredentialsWithOpts creates a new ClientCredentials token source with options.
func NewClientCredentialsWithOpts(tokenURL, clientID, clientSecret string, opts ClientCredentialsOpts) *ClientCredentials {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ExpirationSkew == 0 {
		opts.ExpirationSkew = DefaultExpirationSkew
	}
	return &ClientCredentials{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   opts.HTTPClient,
		scope:        opts.Scope,
		skew:         opts.ExpirationSkew,
	}
}

// GetToken returns a cached token or fetches a new one if the cache is empty or expired.
func (cc *ClientCredentials) GetToken(ctx context.Context, scope ...string) (string, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.token != "" && time.Now().Before(cc.expiresAt) {
		return cc.token, nil
	}

	if len(scope) == 0 {
		scope = cc.scope
	}
	token, expiresIn, err := cc.fetchToken(ctx, scope)
	if err != nil {
		return "", err
	}

	lifetime := fallbackTokenLifetime
	if expiresIn > 0 {
		lifetime = time.Duration(expiresIn) * time.Second
	}
	cc.token = token
	cc.expiresAt = time.Now().Add(lifetime - cc.skew)
	return cc.token, nil
}

// Invalidate drops the cached token so that the next GetToken call fetches a fresh one.
func (cc *ClientCredentials) Invalidate() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.token = ""
	cc.expiresAt = time.Time{}
}

func (cc *ClientCredentials) fetchToken(ctx context.Context, scope []string) (token string, expiresIn int64, err error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cc.clientID)
	form.Set("client_secret", cc.clientSecret)
	if len(scope) != 0 {
		form.Set("scope", strings.Join(scope, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := cc.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do token request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint responded with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("unmarshal token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint responded with empty access_token")
	}
	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}
