package parley

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by a TokenProvider when no session is available.
var ErrNoSession = NewError(ErrorAuth, "no active session")

// TokenProvider supplies a short-lived bearer token for the transport. The
// client calls ValidateSession before the initial connect and again before
// every reconnection attempt; a token is never reused across attempts
// without revalidation.
type TokenProvider interface {
	ValidateSession(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token. Useful for tests and for callers
// that manage token rotation themselves.
type StaticProvider struct {
	Token string
}

func (p StaticProvider) ValidateSession(context.Context) (string, error) {
	if p.Token == "" {
		return "", ErrNoSession
	}
	return p.Token, nil
}

// RefreshingProvider caches a fetched token and checks its JWT exp claim
// before every reuse, fetching a fresh one when the cached token is expired
// or within Leeway of expiring. The claim is read without signature
// verification; verifying the token is the server's job.
type RefreshingProvider struct {
	// Fetch obtains a new token, typically from the auth backend.
	Fetch func(ctx context.Context) (string, error)

	// Leeway refreshes the token this long before its exp claim.
	// Defaults to 30 seconds.
	Leeway time.Duration

	mu    sync.Mutex
	token string
}

func (p *RefreshingProvider) ValidateSession(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	leeway := p.Leeway
	if leeway <= 0 {
		leeway = 30 * time.Second
	}

	if p.token != "" && !tokenExpired(p.token, leeway) {
		return p.token, nil
	}

	if p.Fetch == nil {
		return "", ErrNoSession
	}
	token, err := p.Fetch(ctx)
	if err != nil {
		return "", WrapError(ErrorAuth, "token fetch failed", err)
	}
	if token == "" {
		return "", ErrNoSession
	}
	p.token = token
	return token, nil
}

// tokenExpired reports whether raw is an expired JWT (or expires within
// leeway). Tokens that do not parse as JWTs are treated as expired so a
// garbage cached value forces a refresh. Tokens without an exp claim never
// expire locally.
func tokenExpired(raw string, leeway time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return time.Until(exp.Time) <= leeway
}
