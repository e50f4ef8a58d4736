package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no valid session exists for the id.
var ErrNotFound = errors.New("session not found")

// Store holds session records keyed by derived session id.
//
// Implementations must make each operation individually atomic under
// concurrent callers; no caller may ever observe a partially written
// record. No cross-key ordering is promised; sessions are independent
// by id.
//
// Get performs lazy eviction: an expired record is removed as a side
// effect of the read and treated as absent. Update is a no-op (with a
// warning) when the id is unknown.
//
// The default MemoryStore keeps state for the lifetime of the process
// only; a shared-storage implementation such as PostgresStore substitutes
// without changing any caller.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByShop(ctx context.Context, shopDomain string) (int, error)
	ListByShop(ctx context.Context, shopDomain string) ([]*Session, error)
	ListValid(ctx context.Context) ([]*Session, error)
	SweepExpired(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, s *Session) error
	Count(ctx context.Context) (int, error)
	CountByShop(ctx context.Context, shopDomain string) (int, error)
}
