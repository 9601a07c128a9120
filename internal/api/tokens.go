package api

import (
	"context"
	"errors"
	"sync"
)

// TokenSource yields bearer tokens from the external identity provider.
// Refresh must return a token minted fresh, bypassing any cache; the client
// calls it exactly once after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticTokenSource returns the same token forever. Useful for API keys and
// for tests; Refresh returns the same value.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", errors.New("no token configured")
	}
	return string(s), nil
}

func (s StaticTokenSource) Refresh(ctx context.Context) (string, error) {
	return s.Token(ctx)
}

// TokenCache is the minimal persistence surface a CachedTokenSource needs.
// The sqlite kv store in internal/app satisfies it.
type TokenCache interface {
	GetToken() (string, error)
	SaveToken(token string) error
}

// IssuerFunc mints a new token from the identity provider.
type IssuerFunc func(ctx context.Context) (string, error)

// CachedTokenSource serves tokens from a local cache and falls back to the
// issuer when the cache is empty or a refresh is forced.
type CachedTokenSource struct {
	cache  TokenCache
	issuer IssuerFunc

	mu  sync.Mutex
	cur string
}

func NewCachedTokenSource(cache TokenCache, issuer IssuerFunc) *CachedTokenSource {
	return &CachedTokenSource{cache: cache, issuer: issuer}
}

func (c *CachedTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != "" {
		return c.cur, nil
	}
	if c.cache != nil {
		if tok, err := c.cache.GetToken(); err == nil && tok != "" {
			c.cur = tok
			return tok, nil
		}
	}
	return c.mint(ctx)
}

func (c *CachedTokenSource) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mint(ctx)
}

func (c *CachedTokenSource) mint(ctx context.Context) (string, error) {
	if c.issuer == nil {
		return "", errors.New("no token issuer configured")
	}
	tok, err := c.issuer(ctx)
	if err != nil {
		return "", err
	}
	c.cur = tok
	if c.cache != nil {
		_ = c.cache.SaveToken(tok)
	}
	return tok, nil
}

// Clear drops the in-memory token so the next call re-reads the cache or
// mints a new one. Called on sign-out.
func (c *CachedTokenSource) Clear() {
	c.mu.Lock()
	c.cur = ""
	c.mu.Unlock()
}
