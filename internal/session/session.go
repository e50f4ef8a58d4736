package session

import (
	"fmt"
	"strconv"
	"time"
)

// Session is one shop's (or shop+user's) stored credential grant.
//
// Offline sessions hold the app's long-lived access token for a shop and
// never expire by time. Online sessions are per-user and carry the expiry
// of the identity token that produced them.
type Session struct {
	ID          string
	ShopDomain  string
	AccessToken string
	Scopes      []string
	IsOnline    bool
	UserID      int64 // meaningful only when IsOnline
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time // zero for offline sessions
	Metadata    map[string]string
}

// OfflineSessionID derives the canonical id for a shop's offline session.
// The format is an external contract; it appears wherever session ids are
// persisted or logged.
func OfflineSessionID(shopDomain string) string {
	return "offline_" + shopDomain
}

// OnlineSessionID derives the canonical id for a shop+user online session.
func OnlineSessionID(shopDomain string, userID int64) string {
	return "online_" + shopDomain + "_" + strconv.FormatInt(userID, 10)
}

// IsExpired reports whether an online session's expiry has passed. Offline
// sessions never expire by time.
func (s *Session) IsExpired(now time.Time) bool {
	return s.IsOnline && !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(now)
}

// IsValid reports whether the session can authenticate requests: it must
// carry a shop and a credential, and must not be expired.
func (s *Session) IsValid(now time.Time) bool {
	if s.ShopDomain == "" || s.AccessToken == "" {
		return false
	}
	return !s.IsExpired(now)
}

// Validate checks the structural invariants enforced before a session is
// ever stored.
func (s *Session) Validate() error {
	if s.ShopDomain == "" {
		return fmt.Errorf("session has no shop domain")
	}
	if s.AccessToken == "" {
		return fmt.Errorf("session has no access token")
	}
	if s.IsOnline && s.UserID == 0 {
		return fmt.Errorf("online session has no user id")
	}
	return nil
}

func (s *Session) clone() *Session {
	cp := *s
	if s.Scopes != nil {
		cp.Scopes = append([]string(nil), s.Scopes...)
	}
	if s.Metadata != nil {
		cp.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
