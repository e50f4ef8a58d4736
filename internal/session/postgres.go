package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"platformauth/pkg/platform"
)

// PostgresStore is the shared-storage Store for multi-instance deployments.
// It implements the same contract as MemoryStore and substitutes without
// changing any caller.
type PostgresStore struct {
	db         *pgxpool.Pool
	shopSuffix string
	log        zerolog.Logger
}

func NewPostgresStore(db *pgxpool.Pool, shopSuffix string, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, shopSuffix: shopSuffix, log: log}
}

const sessionColumns = `id, shop_domain, access_token, scopes, is_online, COALESCE(user_id, 0), created_at, updated_at, expires_at, metadata`

// validPredicate mirrors Session.IsValid: a credential and shop are
// mandatory, and only online sessions expire by time.
const validPredicate = `access_token <> '' AND shop_domain <> '' AND (NOT is_online OR expires_at IS NULL OR expires_at > now())`

func (p *PostgresStore) Put(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	cp := s.clone()
	if cp.ID == "" {
		if cp.IsOnline {
			cp.ID = OnlineSessionID(cp.ShopDomain, cp.UserID)
		} else {
			cp.ID = OfflineSessionID(cp.ShopDomain)
		}
	}

	const q = `
INSERT INTO sessions (id, shop_domain, access_token, scopes, is_online, user_id, expires_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  shop_domain = EXCLUDED.shop_domain,
  access_token = EXCLUDED.access_token,
  scopes = EXCLUDED.scopes,
  is_online = EXCLUDED.is_online,
  user_id = EXCLUDED.user_id,
  expires_at = EXCLUDED.expires_at,
  metadata = EXCLUDED.metadata,
  updated_at = now()
RETURNING id, created_at, updated_at
`
	if err := p.db.QueryRow(ctx, q,
		cp.ID,
		cp.ShopDomain,
		cp.AccessToken,
		encodeScopes(cp.Scopes),
		cp.IsOnline,
		nullableUserID(cp),
		nullableExpiry(cp),
		encodeMetadata(cp.Metadata),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	// Lazy eviction first. The expiry guard in the WHERE clause means a
	// concurrent Put that refreshed the session cannot be deleted here.
	tag, err := p.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND is_online AND expires_at IS NOT NULL AND expires_at <= now()`, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() > 0 {
		p.log.Debug().Str("session_id", id).Msg("evicted expired session on read")
		return nil, ErrNotFound
	}

	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND ` + validPredicate
	s, err := scanSession(p.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) DeleteByShop(ctx context.Context, shopDomain string) (int, error) {
	want := platform.NormalizeShopDomain(shopDomain, p.shopSuffix)
	tag, err := p.db.Exec(ctx, `DELETE FROM sessions WHERE shop_domain = $1`, want)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) ListByShop(ctx context.Context, shopDomain string) ([]*Session, error) {
	want := platform.NormalizeShopDomain(shopDomain, p.shopSuffix)
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE shop_domain = $1 AND ` + validPredicate
	return p.querySessions(ctx, q, want)
}

func (p *PostgresStore) ListValid(ctx context.Context) ([]*Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + validPredicate
	return p.querySessions(ctx, q)
}

func (p *PostgresStore) SweepExpired(ctx context.Context) (int, error) {
	tag, err := p.db.Exec(ctx,
		`DELETE FROM sessions WHERE is_online AND expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := p.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresStore) Update(ctx context.Context, s *Session) error {
	if s.ID == "" {
		p.log.Warn().Msg("update of session without id ignored")
		return nil
	}
	const q = `
UPDATE sessions SET
  shop_domain = $2,
  access_token = $3,
  scopes = $4,
  is_online = $5,
  user_id = $6,
  expires_at = $7,
  metadata = $8,
  updated_at = now()
WHERE id = $1
RETURNING updated_at
`
	err := p.db.QueryRow(ctx, q,
		s.ID,
		s.ShopDomain,
		s.AccessToken,
		encodeScopes(s.Scopes),
		s.IsOnline,
		nullableUserID(s),
		nullableExpiry(s),
		encodeMetadata(s.Metadata),
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		p.log.Warn().Str("session_id", s.ID).Msg("update of unknown session ignored")
		return nil
	}
	return err
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *PostgresStore) CountByShop(ctx context.Context, shopDomain string) (int, error) {
	want := platform.NormalizeShopDomain(shopDomain, p.shopSuffix)
	var n int
	q := `SELECT COUNT(*) FROM sessions WHERE shop_domain = $1 AND ` + validPredicate
	if err := p.db.QueryRow(ctx, q, want).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *PostgresStore) querySessions(ctx context.Context, q string, args ...any) ([]*Session, error) {
	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Explicit field-by-field row decode. scopes is a comma-joined list,
// metadata a JSON object; user_id and expires_at are nullable and only
// meaningful for online sessions.
func scanSession(row pgx.Row) (*Session, error) {
	var (
		s         Session
		scopesRaw string
		metaRaw   []byte
		expiresAt *time.Time
	)
	if err := row.Scan(
		&s.ID,
		&s.ShopDomain,
		&s.AccessToken,
		&scopesRaw,
		&s.IsOnline,
		&s.UserID,
		&s.CreatedAt,
		&s.UpdatedAt,
		&expiresAt,
		&metaRaw,
	); err != nil {
		return nil, err
	}
	s.Scopes = decodeScopes(scopesRaw)
	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &s.Metadata)
	}
	return &s, nil
}

func encodeScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}

func decodeScopes(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func encodeMetadata(meta map[string]string) []byte {
	if len(meta) == 0 {
		return []byte(`{}`)
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}

func nullableUserID(s *Session) *int64 {
	if !s.IsOnline {
		return nil
	}
	uid := s.UserID
	return &uid
}

func nullableExpiry(s *Session) *time.Time {
	if s.ExpiresAt.IsZero() {
		return nil
	}
	t := s.ExpiresAt
	return &t
}
