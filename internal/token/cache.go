package token

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"helios/internal/platform/metrics"
	"helios/pkg/domain"
)

// Token is a short-lived upstream access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Key identifies a cached token: one token per organization and scope.
type Key struct {
	OrganizationID domain.OrgID
	Scope          string
}

func (k Key) String() string {
	return k.OrganizationID.String() + "|" + k.Scope
}

// Exchanger performs the actual token exchange against the credential store
// and the provider's token endpoint.
type Exchanger interface {
	Exchange(ctx context.Context, orgID domain.OrgID, scope string) (Token, error)
}

// refreshFraction is the share of a token's lifetime after which the cache
// refreshes proactively, so steady traffic rarely blocks on a cold exchange.
const refreshFraction = 0.9

type entry struct {
	token     Token
	refreshAt time.Time
}

// Cache caches upstream tokens per (organization, scope) with single-flight
// refresh: the first caller for a key performs the exchange, concurrent
// callers for the same key join that in-flight exchange and share its result.
type Cache struct {
	exchanger Exchanger
	metrics   *metrics.Metrics // optional

	mu      sync.RWMutex
	entries map[Key]entry
	group   singleflight.Group

	now func() time.Time // injected clock for tests
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the cache's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMetrics records exchange and hit counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func NewCache(exchanger Exchanger, opts ...Option) *Cache {
	c := &Cache{
		exchanger: exchanger,
		entries:   make(map[Key]entry),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a live token for the key, exchanging one if needed.
// Failures come back as the exchanger returned them (CodeUpstreamUnavailable
// for provider or configuration trouble); nothing is cached on failure.
func (c *Cache) Get(ctx context.Context, key Key) (Token, error) {
	if tok, ok := c.lookup(key); ok {
		if c.metrics != nil {
			c.metrics.TokenCacheHits.Inc()
		}
		return tok, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A racing caller may have refreshed between our lookup and
		// joining the flight.
		if tok, ok := c.lookup(key); ok {
			return tok, nil
		}

		if c.metrics != nil {
			c.metrics.TokenExchanges.Inc()
		}
		tok, err := c.exchanger.Exchange(ctx, key.OrganizationID, key.Scope)
		if err != nil {
			if c.metrics != nil {
				c.metrics.TokenExchangeErrors.Inc()
			}
			return Token{}, err
		}

		now := c.now()
		lifetime := tok.ExpiresAt.Sub(now)
		c.mu.Lock()
		c.entries[key] = entry{
			token:     tok,
			refreshAt: now.Add(time.Duration(float64(lifetime) * refreshFraction)),
		}
		c.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

func (c *Cache) lookup(key Key) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.refreshAt) {
		return Token{}, false
	}
	return e.token, true
}
