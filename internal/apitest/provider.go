package apitest

import (
	"context"
	"sync"
	"time"

	"trolley/internal/provider"

	"github.com/golang-jwt/jwt/v5"
)

// Provider is a token provider double that mints HS256 JWTs accepted by the
// fake API. Tokens can be expired on demand to drive the 401/refresh path.
type Provider struct {
	signingKey []byte
	userID     string

	mu        sync.Mutex
	signedIn  bool
	expired   bool
	refreshes int
	failNext  bool
}

func NewProvider(signingKey []byte, userID string) *Provider {
	return &Provider{signingKey: signingKey, userID: userID, signedIn: true}
}

// ExpireToken makes the next Current call hand out an already-expired token,
// as after a long idle period.
func (p *Provider) ExpireToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = true
}

// FailNextRefresh makes the next Refresh fail, simulating a revoked
// provider session.
func (p *Provider) FailNextRefresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

// Refreshes reports how many refreshes the provider served.
func (p *Provider) Refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

// SignedIn reports whether SignOut has been called.
func (p *Provider) SignedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signedIn
}

func (p *Provider) Current(context.Context) (*provider.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.signedIn {
		return nil, nil
	}
	return p.mint(p.expired)
}

func (p *Provider) Refresh(context.Context) (*provider.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.signedIn {
		return nil, nil
	}
	p.refreshes++
	if p.failNext {
		p.failNext = false
		return nil, nil
	}
	p.expired = false
	return p.mint(false)
}

func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedIn = false
	return nil
}

// mint must be called with the lock held.
func (p *Provider) mint(expired bool) (*provider.Session, error) {
	expiry := time.Now().Add(15 * time.Minute)
	if expired {
		expiry = time.Now().Add(-1 * time.Minute)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": p.userID,
		"exp": expiry.Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString(p.signingKey)
	if err != nil {
		return nil, err
	}
	return &provider.Session{UserID: p.userID, AccessToken: signed, ExpiresAt: expiry}, nil
}
