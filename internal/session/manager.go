package session

import (
	"context"

	"platformauth/pkg/platform"
)

// Manager orchestrates identity claims and the session store. It owns
// session construction; everything else delegates to the store.
type Manager struct {
	Store      Store
	ShopSuffix string
}

// CreateOfflineSession stores the shop-level credential obtained from the
// OAuth code exchange.
func (m Manager) CreateOfflineSession(ctx context.Context, shopDomain, accessToken string, scopes []string) (*Session, error) {
	domain, err := platform.ValidateShopDomain(shopDomain, m.ShopSuffix)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:          OfflineSessionID(domain),
		ShopDomain:  domain,
		AccessToken: accessToken,
		Scopes:      scopes,
		IsOnline:    false,
	}
	if err := m.Store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateOnlineSession stores (or refreshes) the per-user session derived
// from a validated identity token. The session inherits the token's expiry.
func (m Manager) CreateOnlineSession(ctx context.Context, claims *platform.IdentityClaims, accessToken string, scopes []string) (*Session, error) {
	domain, err := platform.ValidateShopDomain(claims.ShopDomain, m.ShopSuffix)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:          OnlineSessionID(domain, claims.UserID),
		ShopDomain:  domain,
		AccessToken: accessToken,
		Scopes:      scopes,
		IsOnline:    true,
		UserID:      claims.UserID,
		ExpiresAt:   claims.ExpiresAt,
	}
	if err := m.Store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve loads a session by id, respecting the store's lazy eviction.
func (m Manager) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	return m.Store.Get(ctx, sessionID)
}

// ResolveOffline loads the shop's offline session.
func (m Manager) ResolveOffline(ctx context.Context, shopDomain string) (*Session, error) {
	domain, err := platform.ValidateShopDomain(shopDomain, m.ShopSuffix)
	if err != nil {
		return nil, err
	}
	return m.Store.Get(ctx, OfflineSessionID(domain))
}

// Revoke deletes a single session.
func (m Manager) Revoke(ctx context.Context, sessionID string) error {
	return m.Store.Delete(ctx, sessionID)
}

// RevokeShop deletes every session belonging to the shop, e.g. on app
// uninstall.
func (m Manager) RevokeShop(ctx context.Context, shopDomain string) (int, error) {
	return m.Store.DeleteByShop(ctx, shopDomain)
}
