package session

import (
	"context"
	"log"
	"time"

	"github.com/librenews/weblog-bridge/internal/model/account"
)

// Backend performs the real login against the remote store.
type Backend interface {
	Authenticate(ctx context.Context, identifier, password string) (account.Session, error)
}

// Authenticator puts a Cache in front of a Backend.
type Authenticator struct {
	backend Backend
	cache   Cache
	ttl     time.Duration
}

// NewAuthenticator returns an Authenticator. A nil cache or non-positive ttl
// disables caching and every call goes to the backend.
func NewAuthenticator(backend Backend, cache Cache, ttl time.Duration) *Authenticator {
	return &Authenticator{backend: backend, cache: cache, ttl: ttl}
}

func (a *Authenticator) enabled() bool {
	return a.cache != nil && a.ttl > 0
}

// Authenticate returns a cached session when one is live, else logs in and caches the result.
// Cache failures are logged and fall through to the backend.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, password string) (account.Session, error) {
	if !a.enabled() {
		return a.backend.Authenticate(ctx, identifier, password)
	}

	key := Key(identifier, password)
	if session, ok, err := a.cache.Get(ctx, key); err != nil {
		log.Printf("[session] cache lookup failed: %v", err)
	} else if ok {
		return session, nil
	}

	session, err := a.backend.Authenticate(ctx, identifier, password)
	if err != nil {
		return account.Session{}, err
	}

	if err := a.cache.Set(ctx, key, session, a.ttl); err != nil {
		log.Printf("[session] cache store failed for %s: %v", session.Handle, err)
	}
	return session, nil
}

// Forget drops the cached session for a credential pair, e.g. after the
// remote store rejected its token.
func (a *Authenticator) Forget(ctx context.Context, identifier, password string) {
	if !a.enabled() {
		return
	}
	if err := a.cache.Delete(ctx, Key(identifier, password)); err != nil {
		log.Printf("[session] cache delete failed: %v", err)
	}
}
