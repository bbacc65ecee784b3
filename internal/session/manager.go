// Package session owns shopping session ids: opaque correlation tokens
// scoping one shopping episode per (user, store) pair. Ids rotate only when
// explicitly cleared after checkout, never on a timer.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"trolley/internal/identity"
	"trolley/internal/platform/metrics"
	"trolley/internal/platform/storage"
	"trolley/internal/provider"

	"github.com/google/uuid"
)

// correlatedPrefixes lists the request path prefixes whose server-side flows
// span multiple calls and therefore need the session correlation header.
var correlatedPrefixes = []string{
	"/api/cart",
	"/api/orders",
	"/api/products/search",
	"/api/coupons/search",
	"/api/coupons/eligible",
}

// RequiresCorrelation reports whether requests to path must carry the
// shopping session header. Pure function of the path string.
func RequiresCorrelation(path string) bool {
	for _, prefix := range correlatedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Manager derives, lazily creates, and rotates shopping session ids over the
// durable tier.
type Manager struct {
	mu       sync.Mutex
	kv       storage.KV
	identity *identity.Store
	tokens   provider.TokenProvider
	metrics  *metrics.Metrics
	log      *slog.Logger
	newID    func() string
}

// Option configures a Manager instance.
type Option func(*Manager)

// WithIDGenerator replaces the id source so tests can supply deterministic ids.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		m.newID = gen
	}
}

func NewManager(kv storage.KV, ids *identity.Store, tokens provider.TokenProvider, mx *metrics.Metrics, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		kv:       kv,
		identity: ids,
		tokens:   tokens,
		metrics:  mx,
		log:      log,
		newID:    NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the session id for (userID, storeID), generating and
// persisting one if the slot is empty. The slot is re-checked immediately
// before writing so a concurrent call never hands out a divergent id.
func (m *Manager) GetOrCreate(ctx context.Context, userID, storeID string) string {
	key := identity.SessionKey(userID, storeID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok, err := m.kv.Get(ctx, key); err == nil && ok {
		return existing
	}

	id := m.newID()

	// Re-check: generation above could have raced a write that completed
	// between the first read and here.
	if existing, ok, err := m.kv.Get(ctx, key); err == nil && ok {
		return existing
	}

	if err := m.kv.Set(ctx, key, id); err != nil {
		// Unpersisted ids still correlate the current episode; the next
		// one simply starts fresh.
		m.log.DebugContext(ctx, "session id not persisted", "error", err)
	}
	m.metrics.SessionsCreated.Inc()
	return id
}

// Clear removes the slot for (userID, storeID) so the next episode gets a
// fresh id. Called after a successful checkout.
func (m *Manager) Clear(ctx context.Context, userID, storeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Delete(ctx, identity.SessionKey(userID, storeID)); err != nil {
		m.log.DebugContext(ctx, "session id not cleared", "error", err)
		return
	}
	m.metrics.SessionsRotated.Inc()
}

// ClearCurrent resolves the active identity and its selected store and
// clears that session slot. Not being signed in is a silent no-op, never
// an error.
func (m *Manager) ClearCurrent(ctx context.Context) {
	if m.tokens == nil {
		return
	}
	sess, err := m.tokens.Current(ctx)
	if err != nil || sess == nil {
		return
	}
	storeID := m.identity.SelectedStore(ctx, sess.UserID)
	m.Clear(ctx, sess.UserID, storeID)
}

// NewID returns an opaque UUID-shaped correlation token. Prefers the
// crypto/rand backed generator; if entropy is exhausted it synthesizes a
// v4-shaped id from a pseudo-random source, indistinguishable in format.
func NewID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return pseudoV4()
}

func pseudoV4() string {
	var b [16]byte
	hi, lo := rand.Uint64(), rand.Uint64()
	for i := 0; i < 8; i++ {
		b[i] = byte(hi >> (8 * i))
		b[8+i] = byte(lo >> (8 * i))
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10xx: 8, 9, a or b
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
