// Package token provides a shared OAuth2 client-credentials token cache.
//
// Tokens are cached per logical service under a caller-supplied cache key
// and refreshed synchronously when expired. The cache knows nothing about
// the APIs the tokens are used against; callers invalidate a key when the
// remote rejects a cached token.
package token

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

	"enrichment-gateway/internal/common/errors"
	"enrichment-gateway/internal/common/logging"
)

const grantTypeClientCredentials = "client_credentials"

// expiryBuffer keeps a token from being handed out moments before it
// expires on the server side.
const expiryBuffer = 30 * time.Second

// ServiceConfig carries the OAuth2 identity of one backing service.
// Loaded once at startup; read-only here.
type ServiceConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	OAuthURL     string
}

// Source is the capability the service clients depend on, so a fake can
// stand in during tests.
type Source interface {
	AccessToken(ctx context.Context, svc ServiceConfig, scope, cacheKey string) (string, error)
	Invalidate(cacheKey string)
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// valid reports whether the token can still be handed out. The buffer
// accounts for request latency between return and first use.
func (t *cachedToken) valid() bool {
	return time.Now().Add(expiryBuffer).Before(t.expiresAt)
}

// Cache is a thread-safe OAuth2 token cache keyed by string.
type Cache struct {
	mu         sync.RWMutex
	tokens     map[string]*cachedToken
	httpClient *http.Client

	// fixedTTL, when non-zero, overrides the server-reported expires_in
	// for every token. Exactly one expiry policy is active per process.
	fixedTTL time.Duration

	logger logging.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithFixedTTL switches the cache to the fixed-duration expiry policy.
func WithFixedTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.fixedTTL = ttl
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		c.httpClient = client
	}
}

// NewCache creates a token cache. By default tokens expire per the
// server-reported expires_in, with a one-hour fallback when absent.
func NewCache(logger logging.Logger, opts ...Option) *Cache {
	c := &Cache{
		tokens:     make(map[string]*cachedToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns a cached token for cacheKey if it is still valid,
// otherwise requests a new one synchronously, stores it, and returns it.
// Refresh is serialized: under contention only one token request is in
// flight per cache, and every caller gets a token that was valid at the
// moment of return.
//
// Token request failures are not retried here; they surface as
// authentication errors and retry policy belongs to the caller.
func (c *Cache) AccessToken(ctx context.Context, svc ServiceConfig, scope, cacheKey string) (string, error) {
	c.mu.RLock()
	if cached, ok := c.tokens[cacheKey]; ok && cached.valid() {
		tok := cached.token
		c.mu.RUnlock()
		return tok, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock
	if cached, ok := c.tokens[cacheKey]; ok && cached.valid() {
		return cached.token, nil
	}

	c.logger.Debug("Requesting new token", logging.String("cache_key", cacheKey))

	tok, expiresIn, err := c.requestToken(ctx, svc, scope)
	if err != nil {
		return "", err
	}

	ttl := c.tokenTTL(expiresIn)
	c.tokens[cacheKey] = &cachedToken{
		token:     tok,
		expiresAt: time.Now().Add(ttl),
	}

	c.logger.Debug("Cached token",
		logging.String("cache_key", cacheKey),
		logging.Duration("ttl", ttl),
	)

	return tok, nil
}

// Invalidate removes any cached entry for cacheKey unconditionally, so
// the next AccessToken call forces a fresh request. Called after a
// remote API returns 401 on a request that used a cached token.
func (c *Cache) Invalidate(cacheKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, cacheKey)
}

// tokenTTL picks the lifetime for a new entry according to the cache's
// expiry policy.
func (c *Cache) tokenTTL(expiresIn int) time.Duration {
	if c.fixedTTL > 0 {
		return c.fixedTTL
	}
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}
	return time.Hour
}

// requestToken performs the client-credentials token request.
func (c *Cache) requestToken(ctx context.Context, svc ServiceConfig, scope string) (string, int, error) {
	tokenURL := strings.TrimRight(svc.OAuthURL, "/") + "/connect/token"

	form := url.Values{}
	form.Set("grant_type", grantTypeClientCredentials)
	form.Set("client_id", svc.ClientID)
	form.Set("client_secret", svc.ClientSecret)
	form.Set("scope", scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, errors.AuthError("failed to create token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, errors.AuthError("token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.AuthError("failed to read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.AuthError(
			fmt.Sprintf("token request returned status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", 0, errors.AuthError("failed to parse token response", err)
	}

	if strings.TrimSpace(tokenResp.AccessToken) == "" {
		return "", 0, errors.AuthError("no access token in response", nil)
	}

	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}
