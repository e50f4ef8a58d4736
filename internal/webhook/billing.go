package webhook

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BillingHandler reacts to the platform's subscription and one-time
// purchase webhooks. It only extracts and validates the money fields;
// whatever bookkeeping the application does with them happens behind
// Record.
type BillingHandler struct {
	Log zerolog.Logger

	// Record receives each accepted billing change. Optional.
	Record func(ctx context.Context, shopDomain, status string, amount decimal.Decimal) error
}

func (h BillingHandler) Name() string { return "billing" }

func (h BillingHandler) Handle(ctx context.Context, evt *Event) error {
	var (
		status string
		amount decimal.Decimal
		ok     bool
	)

	switch evt.Topic {
	case TopicSubscriptionUpdate:
		status, _ = evt.Payload.String("app_subscription", "status")
		amount, ok = evt.Payload.Decimal("app_subscription", "price")
	case TopicOneTimePurchase:
		status, _ = evt.Payload.String("app_purchase_one_time", "status")
		amount, ok = evt.Payload.Decimal("app_purchase_one_time", "price")
	default:
		return fmt.Errorf("billing handler got topic %q", evt.Topic)
	}

	if !ok {
		return fmt.Errorf("billing payload missing price (topic=%s)", evt.Topic)
	}
	if amount.IsNegative() {
		return fmt.Errorf("billing payload has negative price %s", amount)
	}

	h.Log.Info().
		Str("shop", evt.ShopDomain).
		Str("topic", evt.Topic).
		Str("status", status).
		Str("amount", amount.String()).
		Msg("billing update")

	if h.Record != nil {
		return h.Record(ctx, evt.ShopDomain, status, amount)
	}
	return nil
}
