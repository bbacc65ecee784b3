// Package cartcache keeps the last cart/discount computation returned by the
// backend so repeat reads within a short window skip the network. Caching is
// a best-effort optimization: every failure path degrades to a miss and a
// recomputation, never to an error.
package cartcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trolley/internal/cart"
	"trolley/internal/platform/metrics"
	"trolley/internal/platform/storage"
)

// slotKey addresses the singleton entry in the ephemeral tier.
const slotKey = "trolley:cart_result"

// DefaultTTL bounds the age of a readable entry.
const DefaultTTL = 30 * time.Second

// Result is the cached computation. An entry is logically absent whenever
// it is older than the TTL or its hash no longer matches the live cart,
// regardless of physical presence in storage.
type Result struct {
	EligibleCoupons   []cart.Coupon `json:"eligibleCoupons"`
	IneligibleCoupons []cart.Coupon `json:"ineligibleCoupons"`
	Summary           cart.Summary  `json:"summary"`
	CartHash          string        `json:"cartHash"`
	Timestamp         time.Time     `json:"timestamp"`
}

// Cache is the singleton-slot result cache over the ephemeral tier.
type Cache struct {
	kv      storage.KV
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option configures a Cache instance.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock replaces the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(kv storage.KV, mx *metrics.Metrics, log *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		kv:      kv,
		ttl:     DefaultTTL,
		now:     time.Now,
		metrics: mx,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsValid reports whether the stored entry may serve reads for items.
// Absence, a decode failure, expiry, and a hash mismatch are all plain
// misses; the two freshness conditions are independently necessary.
func (c *Cache) IsValid(ctx context.Context, items []cart.Item) bool {
	entry := c.Read(ctx)
	if entry == nil {
		c.metrics.CacheMisses.Inc()
		return false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		c.metrics.CacheMisses.Inc()
		return false
	}
	if entry.CartHash != Hash(items) {
		c.metrics.CacheMisses.Inc()
		return false
	}
	c.metrics.CacheHits.Inc()
	return true
}

// Read returns the stored entry, or nil on absence or decode failure. It
// does not check validity; callers consult IsValid first so "expired" and
// "absent" stay distinguishable.
func (c *Cache) Read(ctx context.Context) *Result {
	raw, ok, err := c.kv.Get(ctx, slotKey)
	if err != nil || !ok {
		return nil
	}
	var entry Result
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.DebugContext(ctx, "discarding undecodable cache entry", "error", err)
		return nil
	}
	return &entry
}

// Write overwrites the slot with the latest computation, stamped with the
// hash of items and the current time. Storage failures are logged and
// swallowed.
func (c *Cache) Write(ctx context.Context, eligible, ineligible []cart.Coupon, summary cart.Summary, items []cart.Item) {
	entry := Result{
		EligibleCoupons:   eligible,
		IneligibleCoupons: ineligible,
		Summary:           summary,
		CartHash:          Hash(items),
		Timestamp:         c.now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.log.WarnContext(ctx, "failed to encode cart result", "error", err)
		return
	}
	if err := c.kv.Set(ctx, slotKey, string(data)); err != nil {
		c.log.DebugContext(ctx, "cart result not cached", "error", err)
	}
}

// Clear removes the slot unconditionally, for callers that prefer an
// explicit miss over relying on hash mismatch.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.kv.Delete(ctx, slotKey); err != nil {
		c.log.DebugContext(ctx, "cart result not cleared", "error", err)
	}
}
