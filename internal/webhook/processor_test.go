package webhook

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platformauth/pkg/platform"
)

const testSecret = "shhh"

func deliveryHeaders(secret string, body []byte) map[string]string {
	h := map[string]string{
		HeaderTopic:      "orders/create",
		HeaderShopDomain: "my-shop.example-platform.com",
		HeaderWebhookID:  "delivery-1",
		HeaderAPIVersion: "2025-10",
	}
	if secret != "" {
		h[HeaderHMAC] = platform.SignBase64(secret, body)
	}
	return h
}

func newTestProcessor(secret string, registry *Registry) *Processor {
	return &Processor{
		Secret:   secret,
		Registry: registry,
		Log:      zerolog.Nop(),
	}
}

func TestProcessDispatchesToExactAndWildcard(t *testing.T) {
	var exact, wildcard atomic.Int64
	registry := NewRegistry()
	registry.RegisterFunc("orders/create", "orders", func(ctx context.Context, evt *Event) error {
		exact.Add(1)
		return nil
	})
	registry.RegisterFunc(WildcardTopic, "audit", func(ctx context.Context, evt *Event) error {
		wildcard.Add(1)
		return nil
	})

	p := newTestProcessor(testSecret, registry)
	body := []byte(`{"id": 1}`)

	evt, err := p.Process(context.Background(), body, deliveryHeaders(testSecret, body))
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, int64(1), exact.Load())
	assert.Equal(t, int64(1), wildcard.Load())
	assert.Equal(t, "orders/create", evt.Topic)
	assert.Equal(t, "my-shop.example-platform.com", evt.ShopDomain)
	assert.Equal(t, "delivery-1", evt.ID)
	assert.True(t, evt.SignatureValid)
}

func TestProcessHandlerFailureIsIsolated(t *testing.T) {
	var other atomic.Int64
	registry := NewRegistry()
	registry.RegisterFunc("orders/create", "failing", func(ctx context.Context, evt *Event) error {
		return errors.New("handler exploded")
	})
	registry.RegisterFunc("orders/create", "panicking", func(ctx context.Context, evt *Event) error {
		panic("boom")
	})
	registry.RegisterFunc(WildcardTopic, "healthy", func(ctx context.Context, evt *Event) error {
		other.Add(1)
		return nil
	})

	p := newTestProcessor(testSecret, registry)
	body := []byte(`{"id": 1}`)

	// One handler erroring (or panicking) never fails the delivery and
	// never blocks the other handlers.
	evt, err := p.Process(context.Background(), body, deliveryHeaders(testSecret, body))
	require.NoError(t, err)
	require.NotNil(t, evt)
	p.Wait()

	assert.Equal(t, int64(1), other.Load())

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestProcessRejectsBadSignature(t *testing.T) {
	var invoked atomic.Int64
	registry := NewRegistry()
	registry.RegisterFunc(WildcardTopic, "audit", func(ctx context.Context, evt *Event) error {
		invoked.Add(1)
		return nil
	})

	p := newTestProcessor(testSecret, registry)
	body := []byte(`{"a":1}`)
	headers := deliveryHeaders(testSecret, body)
	headers[HeaderHMAC] = platform.SignBase64("wrong-secret", body)

	_, err := p.Process(context.Background(), body, headers)
	assert.ErrorIs(t, err, ErrSignature)
	p.Wait()

	// No handler runs for a forged delivery.
	assert.Equal(t, int64(0), invoked.Load())

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(0), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestProcessRejectsMissingSignature(t *testing.T) {
	p := newTestProcessor(testSecret, NewRegistry())
	body := []byte(`{"a":1}`)
	headers := deliveryHeaders("", body)

	_, err := p.Process(context.Background(), body, headers)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestProcessSkipsVerificationWithoutSecret(t *testing.T) {
	registry := NewRegistry()
	var invoked atomic.Int64
	registry.RegisterFunc(WildcardTopic, "audit", func(ctx context.Context, evt *Event) error {
		invoked.Add(1)
		return nil
	})

	// No signing secret configured: explicit opt-out, deliveries pass
	// through unverified.
	p := newTestProcessor("", registry)
	body := []byte(`{"a":1}`)

	evt, err := p.Process(context.Background(), body, deliveryHeaders("", body))
	require.NoError(t, err)
	p.Wait()

	assert.False(t, evt.SignatureValid)
	assert.Equal(t, int64(1), invoked.Load())
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	p := newTestProcessor(testSecret, NewRegistry())
	body := []byte(`{"a":`)

	_, err := p.Process(context.Background(), body, deliveryHeaders(testSecret, body))
	assert.ErrorIs(t, err, ErrPayload)
}

func TestProcessSynthesizesDeliveryID(t *testing.T) {
	p := newTestProcessor(testSecret, NewRegistry())
	body := []byte(`{"a":1}`)
	headers := deliveryHeaders(testSecret, body)
	delete(headers, HeaderWebhookID)

	evt, err := p.Process(context.Background(), body, headers)
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
}

func TestProcessSurvivesMissingHeaders(t *testing.T) {
	p := newTestProcessor("", NewRegistry())

	// Header absence is recorded, not fatal.
	evt, err := p.Process(context.Background(), []byte(`{}`), map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, evt.Topic)
	assert.Empty(t, evt.ShopDomain)
	assert.NotEmpty(t, evt.ID)
}

func TestProcessDetachesHandlersFromRequestContext(t *testing.T) {
	done := make(chan error, 1)
	registry := NewRegistry()
	registry.RegisterFunc(WildcardTopic, "slow", func(ctx context.Context, evt *Event) error {
		// The request context is already cancelled; the handler's context
		// must not be.
		done <- ctx.Err()
		return nil
	})

	p := newTestProcessor("", registry)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, []byte(`{}`), map[string]string{HeaderTopic: "orders/create"})
	require.NoError(t, err)
	p.Wait()

	assert.NoError(t, <-done)
}

func TestStatsByTopic(t *testing.T) {
	p := newTestProcessor("", NewRegistry())

	for i := 0; i < 3; i++ {
		_, err := p.Process(context.Background(), []byte(`{}`), map[string]string{HeaderTopic: "orders/create"})
		require.NoError(t, err)
	}
	_, err := p.Process(context.Background(), []byte(`{}`), map[string]string{HeaderTopic: "app/uninstalled"})
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.ByTopic["orders/create"])
	assert.Equal(t, int64(1), stats.ByTopic["app/uninstalled"])

	p.ResetStats()
	stats = p.Stats()
	assert.Equal(t, int64(0), stats.Received)
	assert.Empty(t, stats.ByTopic)
}
