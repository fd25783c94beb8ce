package auth

import (
	"context"
	"time"

	"classifieds/internal/cache"
)

const sessionKeyPrefix = "session:"

// CachedSession is the part of a session row needed to authenticate a request.
type CachedSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCacheInterface defines the read-through cache in front of the session table.
type SessionCacheInterface interface {
	Put(ctx context.Context, token string, session CachedSession)
	Get(ctx context.Context, token string) (CachedSession, bool)
	Invalidate(ctx context.Context, tokens ...string)
}

// SessionCache stores session lookups in Redis until the session expires.
type SessionCache struct {
	cache *cache.Client
	now   func() time.Time
}

var _ SessionCacheInterface = (*SessionCache)(nil)

// NewSessionCache creates a new session cache. A nil client disables caching.
func NewSessionCache(cache *cache.Client) *SessionCache {
	return &SessionCache{cache: cache, now: time.Now}
}

// Put caches a session for the time it has left.
func (s *SessionCache) Put(ctx context.Context, token string, session CachedSession) {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	s.cache.SetJSON(ctx, sessionKeyPrefix+token, session, ttl)
}

// Get returns the cached session for token, if any.
func (s *SessionCache) Get(ctx context.Context, token string) (CachedSession, bool) {
	var session CachedSession
	if !s.cache.GetJSON(ctx, sessionKeyPrefix+token, &session) || session.UserID == "" {
		return CachedSession{}, false
	}
	return session, true
}

// Invalidate drops the cached entries of the given tokens.
func (s *SessionCache) Invalidate(ctx context.Context, tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		keys = append(keys, sessionKeyPrefix+t)
	}
	_ = s.cache.Delete(ctx, keys...)
}
