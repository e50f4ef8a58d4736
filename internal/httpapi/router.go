package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"platformauth/internal/api"
	"platformauth/internal/auth"
	"platformauth/internal/session"
	"platformauth/internal/webhook"
	"platformauth/pkg/config"
	"platformauth/pkg/platform"
)

type Dependencies struct {
	Cfg      config.Config
	Sessions session.Manager
	Registry *webhook.Registry
	Log      zerolog.Logger
}

func NewRouter(deps Dependencies) (http.Handler, *webhook.Processor) {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	oauth := platformOAuth(deps.Cfg)
	validator := tokenValidator(deps.Cfg)

	authHandlers := auth.Handlers{
		Cfg:      deps.Cfg,
		OAuth:    oauth,
		Sessions: deps.Sessions,
		Log:      deps.Log.With().Str("component", "oauth").Logger(),
	}

	processor := &webhook.Processor{
		Secret:   deps.Cfg.Platform.WebhookSecret,
		Registry: deps.Registry,
		Log:      deps.Log.With().Str("component", "webhook").Logger(),
	}
	webhookHandler := webhook.HTTPHandler{Processor: processor}
	statsHandler := webhook.StatsHandler{Processor: processor}

	// v1
	r.Route("/v1", func(r chi.Router) {
		r.Get("/auth/install", authHandlers.Install)
		r.Get("/auth/callback", authHandlers.Callback)

		// Embedded-app APIs (session-token scoped)
		r.Group(func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.AllowedOrigins,
			}))
			r.Use(api.SessionTokenAuth(validator, deps.Sessions, deps.Log))

			r.Get("/session", sessionInfo)
			r.Delete("/session", revokeSession(deps.Sessions))
		})

		// Webhooks
		r.Post("/webhooks/platform", webhookHandler.ServeHTTP)
		r.Get("/webhooks/stats", statsHandler.ServeHTTP)
	})

	return r, processor
}

func platformOAuth(cfg config.Config) platform.OAuth {
	return platform.OAuth{
		APIKey:     cfg.Platform.APIKey,
		APISecret:  cfg.Platform.APISecret,
		ShopSuffix: cfg.Platform.ShopSuffix,
	}
}

func tokenValidator(cfg config.Config) platform.TokenValidator {
	return platform.TokenValidator{
		APIKey:     cfg.Platform.APIKey,
		APISecret:  cfg.Platform.APISecret,
		ShopSuffix: cfg.Platform.ShopSuffix,
	}
}

// sessionInfo reports the caller's resolved session; the embedded frontend
// uses it to confirm auth state.
func sessionInfo(w http.ResponseWriter, r *http.Request) {
	s := api.SessionFromContext(r.Context())
	if s == nil {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": s.ID,
		"shop":       s.ShopDomain,
		"is_online":  s.IsOnline,
		"user_id":    s.UserID,
		"scopes":     s.Scopes,
		"expires_at": s.ExpiresAt,
	})
}

// revokeSession deletes the caller's online session.
func revokeSession(sessions session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := api.SessionFromContext(r.Context())
		if s == nil {
			api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "no session")
			return
		}
		if err := sessions.Revoke(r.Context(), s.ID); err != nil {
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to revoke session")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
