package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

// TokenProvider yields the session token attached as a bearer credential to
// streaming requests. Token acquisition itself (login, refresh) lives
// outside this module; implementations only hand back whatever is current.
// An empty token with a nil error means "send the request unauthenticated".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Used when the token is loaded
// once from config or injected by the embedding application.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// FetchFunc obtains a fresh token from the external auth collaborator.
type FetchFunc func(ctx context.Context) (string, error)

const cachedTokenKey = "session_token"

// CachingTokenProvider wraps a FetchFunc with an in-memory cache. A cached
// JWT is reused until its exp claim comes within the refresh margin; tokens
// that are not JWTs fall back to the cache's own expiration.
type CachingTokenProvider struct {
	fetch         FetchFunc
	cache         *cache.Cache
	refreshMargin time.Duration
}

func NewCachingTokenProvider(fetch FetchFunc, refreshMargin time.Duration) *CachingTokenProvider {
	// Purge interval is generous: the cache holds a single small entry.
	c := cache.New(30*time.Minute, 10*time.Minute)
	return &CachingTokenProvider{
		fetch:         fetch,
		cache:         c,
		refreshMargin: refreshMargin,
	}
}

func (p *CachingTokenProvider) Token(ctx context.Context) (string, error) {
	if x, found := p.cache.Get(cachedTokenKey); found {
		token := x.(string)
		if !p.expiringSoon(token) {
			return token, nil
		}
	}

	token, err := p.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch session token: %w", err)
	}

	p.cache.Set(cachedTokenKey, token, p.cacheTTL(token))
	return token, nil
}

// expiringSoon inspects the exp claim without verifying the signature; the
// client is not the party that validates tokens, it only avoids sending one
// the server is about to reject.
func (p *CachingTokenProvider) expiringSoon(token string) bool {
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return time.Until(exp) < p.refreshMargin
}

func (p *CachingTokenProvider) cacheTTL(token string) time.Duration {
	exp, ok := tokenExpiry(token)
	if !ok {
		return cache.DefaultExpiration
	}
	ttl := time.Until(exp) - p.refreshMargin
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
