// Package session reuses authenticated remote sessions across calls so an
// editor publishing several posts does not log in to the remote store every time.
package session

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/librenews/weblog-bridge/internal/model/account"
)

// Cache stores sessions keyed by a credential digest.
type Cache interface {
	Get(ctx context.Context, key string) (account.Session, bool, error)
	Set(ctx context.Context, key string, session account.Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key for a credential pair. The password never leaves
// this function in clear form.
func Key(identifier, password string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	h.Write([]byte{0})
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

type memoryEntry struct {
	session   account.Session
	expiresAt time.Time
}

// MemoryCache keeps sessions in process memory.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache bootstraps an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a live entry; expired entries are removed on access.
func (c *MemoryCache) Get(_ context.Context, key string) (account.Session, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return account.Session{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return account.Session{}, false, nil
	}
	return entry.session, true, nil
}

// Set stores a session for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, session account.Session, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{session: session, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete drops a session.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
