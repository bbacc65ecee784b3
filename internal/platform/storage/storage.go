// Package storage provides the key-value ports behind the identity, session,
// and cart cache slots. Two tiers exist and must not be conflated: the
// durable tier survives process restarts (identity and shopping session
// slots), the ephemeral tier lives for the process only (cached cart
// computations).
package storage

import (
	"context"

	dErrors "trolley/pkg/domain-errors"
)

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks KV

// ErrUnavailable reports a persistence medium that cannot be reached.
// Callers treat it as "no persistence", never as a failed operation.
var ErrUnavailable = dErrors.New(dErrors.CodeStorageUnavailable, "storage unavailable")

// KV is a plain string-keyed store with no transactions. Get reports
// presence explicitly so an empty stored value is distinguishable from
// an absent key.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
