package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"platformauth/internal/session"
	"platformauth/pkg/config"
	"platformauth/pkg/platform"
)

// Handlers implements the app-installation OAuth flow: /install redirects
// the merchant to the platform's consent screen, /callback validates the
// signed callback, exchanges the code, and stores the offline session.
type Handlers struct {
	Cfg      config.Config
	OAuth    platform.OAuth
	Sessions session.Manager
	Log      zerolog.Logger
}

func (h Handlers) Install(w http.ResponseWriter, r *http.Request) {
	shop := strings.TrimSpace(r.URL.Query().Get("shop"))

	state := randomHex(16)
	authURL, err := h.OAuth.BuildAuthorizationURL(shop, h.Cfg.Platform.Scopes, h.Cfg.Platform.RedirectURL, state)
	if err != nil {
		http.Error(w, "invalid shop", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.Cfg.AppEnv == "prod",
	})

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	shop := strings.TrimSpace(qs.Get("shop"))

	c, err := r.Cookie("oauth_state")
	if err != nil || c.Value == "" || c.Value != qs.Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	if !h.OAuth.ValidateCallbackQuery(qs) {
		h.Log.Warn().Str("shop", shop).Msg("oauth callback rejected")
		http.Error(w, "invalid hmac", http.StatusUnauthorized)
		return
	}

	tok, err := h.OAuth.ExchangeCodeForToken(r.Context(), shop, qs.Get("code"))
	if err != nil {
		h.Log.Error().Err(err).Str("shop", shop).Msg("token exchange failed")
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	s, err := h.Sessions.CreateOfflineSession(r.Context(), shop, tok.Token, tok.Scopes)
	if err != nil {
		h.Log.Error().Err(err).Str("shop", shop).Msg("offline session store failed")
		http.Error(w, "failed to store session", http.StatusInternalServerError)
		return
	}

	// Register webhook subscriptions when the backend is reachable from
	// the platform.
	if base := strings.TrimRight(strings.TrimSpace(h.Cfg.PublicBaseURL), "/"); base != "" {
		h.registerWebhooks(r, s, base)
	}

	h.Log.Info().Str("shop", s.ShopDomain).Str("session_id", s.ID).Msg("app installed")
	_, _ = w.Write([]byte("installed"))
}

func (h Handlers) registerWebhooks(r *http.Request, s *session.Session, base string) {
	client := platform.Client{
		ShopDomain:  s.ShopDomain,
		AccessToken: s.AccessToken,
		APIVersion:  h.Cfg.Platform.APIVersion,
	}

	for _, topic := range h.Cfg.Platform.WebhookTopics {
		if err := client.CreateWebhook(r.Context(), topic, base+"/v1/webhooks/platform"); err != nil {
			h.Log.Warn().Err(err).Str("shop", s.ShopDomain).Str("topic", topic).Msg("webhook registration failed")
		}
	}
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
