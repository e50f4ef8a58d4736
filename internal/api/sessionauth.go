package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"platformauth/internal/session"
	"platformauth/pkg/platform"
)

// SessionTokenAuth validates the platform's embedded-app session tokens.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// On success the shop's online session is created or refreshed (inheriting
// the token's expiry, with the credential carried over from the shop's
// offline grant) and attached to the request context.
func SessionTokenAuth(validator platform.TokenValidator, sessions session.Manager, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
				return
			}

			token := strings.TrimSpace(authz[len("bearer "):])
			claims, err := validator.Validate(token)
			if err != nil {
				log.Debug().Err(err).Msg("session token rejected")
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", tokenErrorMessage(err))
				return
			}

			s, err := sessions.Resolve(r.Context(), session.OnlineSessionID(claims.ShopDomain, claims.UserID))
			if errors.Is(err, session.ErrNotFound) {
				// First request from this user since install (or since the
				// previous online session expired): bootstrap from the
				// shop's offline grant.
				offline, offErr := sessions.ResolveOffline(r.Context(), claims.ShopDomain)
				if offErr != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unknown shop")
					return
				}
				s, err = sessions.CreateOnlineSession(r.Context(), claims, offline.AccessToken, offline.Scopes)
			}
			if err != nil {
				log.Error().Err(err).Str("shop", claims.ShopDomain).Msg("session resolution failed")
				WriteError(w, http.StatusInternalServerError, "INTERNAL", "session resolution failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, platform.ErrEmptyToken):
		return "empty session token"
	case errors.Is(err, platform.ErrTokenExpired):
		return "session token expired"
	default:
		return "invalid session token"
	}
}
