// Package store persists subscriber records.
//
// The background loops and the command layer only talk to the Store
// interface; the single production implementation is SQLite.
package store

import (
	"context"
	"time"

	"gasbot/internal/domain"
)

// Config configures the subscriber store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Predicate selects subscribers in Query. It must not retain its argument.
type Predicate func(*domain.Subscriber) bool

// Store is the persistence API for subscriber records.
//
// Get has get-or-create semantics: an unknown id yields a freshly
// persisted default record, never an error the caller has to branch on.
// If persisting the default fails, Get logs and returns a usable
// in-memory default instead of propagating the failure.
type Store interface {
	Get(ctx context.Context, id int64, displayName string) (*domain.Subscriber, error)
	Query(ctx context.Context, pred Predicate) ([]domain.Subscriber, error)
	Update(ctx context.Context, sub *domain.Subscriber) error
	Close() error
}
