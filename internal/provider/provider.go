// Package provider defines the port toward the external identity provider.
// Tokens are opaque to the coordination layer: nothing here inspects
// token internals, the provider alone decides what a refresh yields.
package provider

import (
	"context"
	"time"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks TokenProvider

// Session is the provider's view of the signed-in user. Read-only here
// except through Refresh and SignOut.
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// TokenProvider is the external identity provider capability this layer
// consumes. Current returns nil with no error when nobody is signed in;
// Refresh returning nil or an error means the credentials are beyond
// recovery and the caller must re-authenticate.
type TokenProvider interface {
	Current(ctx context.Context) (*Session, error)
	Refresh(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
}
