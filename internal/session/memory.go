package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"platformauth/pkg/platform"
)

// maxSessions caps the in-memory store to prevent unbounded growth when a
// misbehaving caller mints sessions in a loop.
const maxSessions = 10000

// MemoryStore is the default in-process Store. It is safe for unbounded
// concurrent callers but keeps state only for the lifetime of the process,
// so it is not suitable for multi-instance deployments; use PostgresStore
// there.
type MemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	shopSuffix string
	log        zerolog.Logger
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory session store. shopSuffix is
// the platform domain suffix used to normalize shop keys for the by-shop
// operations.
func NewMemoryStore(shopSuffix string, log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*Session),
		shopSuffix: shopSuffix,
		log:        log,
		now:        time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cp := s.clone()
	if cp.ID == "" {
		if cp.IsOnline {
			cp.ID = OnlineSessionID(cp.ShopDomain, cp.UserID)
		} else {
			cp.ID = OfflineSessionID(cp.ShopDomain)
		}
	}

	if _, replacing := m.sessions[cp.ID]; !replacing && len(m.sessions) >= maxSessions {
		m.sweepLocked(now)
		if len(m.sessions) >= maxSessions {
			return fmt.Errorf("session store at capacity (%d sessions)", maxSessions)
		}
	}
	if cp.CreatedAt.IsZero() {
		if existing, ok := m.sessions[cp.ID]; ok {
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.CreatedAt = now
		}
	}
	cp.UpdatedAt = now

	m.sessions[cp.ID] = cp
	s.ID = cp.ID
	s.CreatedAt = cp.CreatedAt
	s.UpdatedAt = cp.UpdatedAt

	m.log.Debug().Str("session_id", cp.ID).Int("total", len(m.sessions)).Msg("stored session")
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired(now) {
		delete(m.sessions, id)
		m.log.Debug().Str("session_id", id).Msg("evicted expired session on read")
		return nil, ErrNotFound
	}
	if !s.IsValid(now) {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.log.Debug().Str("session_id", id).Int("total", len(m.sessions)).Msg("deleted session")
	}
	return nil
}

func (m *MemoryStore) DeleteByShop(_ context.Context, shopDomain string) (int, error) {
	want := platform.NormalizeShopDomain(shopDomain, m.shopSuffix)

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, s := range m.sessions {
		if platform.NormalizeShopDomain(s.ShopDomain, m.shopSuffix) == want {
			delete(m.sessions, id)
			deleted++
		}
	}
	if deleted > 0 {
		m.log.Debug().Str("shop", want).Int("deleted", deleted).Msg("deleted shop sessions")
	}
	return deleted, nil
}

func (m *MemoryStore) ListByShop(_ context.Context, shopDomain string) ([]*Session, error) {
	want := platform.NormalizeShopDomain(shopDomain, m.shopSuffix)
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.IsValid(now) && platform.NormalizeShopDomain(s.ShopDomain, m.shopSuffix) == want {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) ListValid(_ context.Context) ([]*Session, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.IsValid(now) {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweepLocked(m.now()), nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := m.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		m.log.Warn().Msg("update of session without id ignored")
		return nil
	}
	existing, ok := m.sessions[s.ID]
	if !ok {
		m.log.Warn().Str("session_id", s.ID).Msg("update of unknown session ignored")
		return nil
	}

	cp := s.clone()
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = m.now()
	m.sessions[cp.ID] = cp
	s.UpdatedAt = cp.UpdatedAt

	m.log.Debug().Str("session_id", cp.ID).Msg("updated session")
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions), nil
}

func (m *MemoryStore) CountByShop(ctx context.Context, shopDomain string) (int, error) {
	list, err := m.ListByShop(ctx, shopDomain)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (m *MemoryStore) sweepLocked(now time.Time) int {
	swept := 0
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			swept++
		}
	}
	if swept > 0 {
		m.log.Debug().Int("swept", swept).Int("remaining", len(m.sessions)).Msg("swept expired sessions")
	}
	return swept
}
