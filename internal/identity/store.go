// Package identity persists which store a signed-in user is shopping at and
// derives the storage keys scoping per-(user, store) session state.
package identity

import (
	"context"
	"errors"
	"log/slog"

	"trolley/internal/platform/storage"
)

// noStoreSentinel keys session state when the user has not selected a store,
// so "no store" sessions never collide with any real store id.
const noStoreSentinel = "no_store"

// Store reads and writes the user's selected store over the durable tier.
// Every accessor degrades silently when the medium is unavailable: an
// unreadable store means "nothing selected", never a failed call.
type Store struct {
	kv  storage.KV
	log *slog.Logger
}

func New(kv storage.KV, log *slog.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// SelectedStoreKey is the durable slot holding userID's selected store.
func SelectedStoreKey(userID string) string {
	return "trolley:selected_store:" + userID
}

// SessionKey is the durable slot holding the shopping session id for the
// (userID, storeID) pair. An empty storeID maps to the no-store sentinel.
func SessionKey(userID, storeID string) string {
	if storeID == "" {
		storeID = noStoreSentinel
	}
	return "trolley:shopping_session:" + userID + ":" + storeID
}

// SetSelectedStore overwrites the selected store; an empty storeID removes
// the persisted value.
func (s *Store) SetSelectedStore(ctx context.Context, userID, storeID string) {
	var err error
	if storeID == "" {
		err = s.kv.Delete(ctx, SelectedStoreKey(userID))
	} else {
		err = s.kv.Set(ctx, SelectedStoreKey(userID), storeID)
	}
	if err != nil && !errors.Is(err, storage.ErrUnavailable) {
		s.log.WarnContext(ctx, "failed to persist selected store", "error", err)
	}
}

// SelectedStore returns the persisted selection or "" when none exists or
// the medium is unavailable.
func (s *Store) SelectedStore(ctx context.Context, userID string) string {
	value, ok, err := s.kv.Get(ctx, SelectedStoreKey(userID))
	if err != nil || !ok {
		return ""
	}
	return value
}
