package webhook

import (
	"context"

	"github.com/rs/zerolog"

	"platformauth/internal/session"
)

// UninstallHandler revokes every session a shop holds when the platform
// reports the app removed.
type UninstallHandler struct {
	Sessions session.Manager
	Log      zerolog.Logger
}

func (h UninstallHandler) Name() string { return "uninstall" }

func (h UninstallHandler) Handle(ctx context.Context, evt *Event) error {
	if evt.ShopDomain == "" {
		// Nothing to revoke without a shop; the delivery header was absent.
		h.Log.Warn().Str("webhook_id", evt.ID).Msg("uninstall webhook without shop domain")
		return nil
	}

	n, err := h.Sessions.RevokeShop(ctx, evt.ShopDomain)
	if err != nil {
		return err
	}
	h.Log.Info().Str("shop", evt.ShopDomain).Int("revoked", n).Msg("app uninstalled, sessions revoked")
	return nil
}
