package webhook

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"platformauth/pkg/platform"
)

// Processor verifies, parses, and dispatches inbound webhook deliveries.
//
// State machine per delivery: received -> signature checked -> parsed ->
// dispatched. Failures before parse are returned as errors and no handler
// runs; handler failures after that point are isolated and logged, never
// surfaced to the caller.
type Processor struct {
	// Secret signs webhook bodies. Empty means the installation opted out
	// of signing and verification is skipped.
	Secret   string
	Registry *Registry
	Log      zerolog.Logger

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time

	wg sync.WaitGroup

	received  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	topicMu    sync.Mutex
	topicStats map[string]int64
}

// Stats is a snapshot of processing counters.
type Stats struct {
	Received  int64            `json:"received"`
	Processed int64            `json:"processed"`
	Failed    int64            `json:"failed"`
	ByTopic   map[string]int64 `json:"by_topic"`
}

// Process runs the trust-boundary pipeline for one delivery.
//
// rawBody must be the exact bytes received on the wire; any re-encoding
// breaks the signature. Process returns once the event is verified and
// parsed. Matching handlers run on their own goroutines, detached from
// ctx: delivery is at-least-once and a client disconnect must not drop a
// verified event. Use Wait to drain in-flight handlers on shutdown.
func (p *Processor) Process(ctx context.Context, rawBody []byte, headers map[string]string) (*Event, error) {
	p.received.Add(1)

	evt, err := p.buildEvent(rawBody, headers)
	if err != nil {
		p.failed.Add(1)
		return nil, err
	}

	p.dispatch(ctx, evt)

	p.processed.Add(1)
	p.countTopic(evt.Topic)
	return evt, nil
}

func (p *Processor) buildEvent(rawBody []byte, headers map[string]string) (*Event, error) {
	topic := CanonicalTopic(headerValue(headers, HeaderTopic))
	shopDomain := headerValue(headers, HeaderShopDomain)
	signature := headerValue(headers, HeaderHMAC)
	id := headerValue(headers, HeaderWebhookID)
	apiVersion := headerValue(headers, HeaderAPIVersion)

	signatureValid := false
	if p.Secret != "" {
		if !platform.VerifyBase64(p.Secret, rawBody, signature) {
			p.Log.Warn().
				Str("topic", topic).
				Str("shop", shopDomain).
				Str("webhook_id", id).
				Msg("webhook signature mismatch")
			return nil, ErrSignature
		}
		signatureValid = true
	} else {
		p.Log.Debug().Str("topic", topic).Msg("no webhook secret configured, skipping verification")
	}

	payload, err := ParsePayload(rawBody)
	if err != nil {
		return nil, err
	}

	if id == "" {
		// The platform omits the delivery id on some paths; synthesize one
		// so handler logs stay correlatable.
		id = uuid.NewString()
	}

	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	hdrs := make(map[string]string, len(headers))
	for k, v := range headers {
		hdrs[k] = v
	}

	return &Event{
		ID:             id,
		Topic:          topic,
		ShopDomain:     shopDomain,
		APIVersion:     apiVersion,
		Headers:        hdrs,
		RawBody:        rawBody,
		Payload:        payload,
		SignatureValid: signatureValid,
		ReceivedAt:     now,
	}, nil
}

// dispatch fans the event out to every matching registration. Each handler
// runs on its own goroutine with the request's cancellation stripped, so an
// aborted delivery connection cannot kill a handler mid-flight.
func (p *Processor) dispatch(ctx context.Context, evt *Event) {
	regs := p.Registry.HandlersFor(evt.Topic)
	if len(regs) == 0 {
		p.Log.Debug().Str("topic", evt.Topic).Str("webhook_id", evt.ID).Msg("no handlers registered")
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, reg := range regs {
		p.wg.Add(1)
		go func(reg Registration) {
			defer p.wg.Done()
			p.runHandler(detached, reg, evt)
		}(reg)
	}
}

func (p *Processor) runHandler(ctx context.Context, reg Registration, evt *Event) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.Log.Error().
				Str("handler", reg.Handler.Name()).
				Str("topic", evt.Topic).
				Str("webhook_id", evt.ID).
				Str("panic", fmt.Sprint(r)).
				Msg("webhook handler panicked")
		}
	}()

	if err := reg.Handler.Handle(ctx, evt); err != nil {
		p.failed.Add(1)
		p.Log.Error().
			Err(err).
			Str("handler", reg.Handler.Name()).
			Str("topic", evt.Topic).
			Str("shop", evt.ShopDomain).
			Str("webhook_id", evt.ID).
			Msg("webhook handler failed")
		return
	}
	p.Log.Debug().
		Str("handler", reg.Handler.Name()).
		Str("topic", evt.Topic).
		Str("webhook_id", evt.ID).
		Msg("webhook handler done")
}

// Wait blocks until all in-flight handlers have finished. Call during
// shutdown after the HTTP server has stopped accepting deliveries.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Stats snapshots the processing counters.
func (p *Processor) Stats() Stats {
	p.topicMu.Lock()
	byTopic := make(map[string]int64, len(p.topicStats))
	for k, v := range p.topicStats {
		byTopic[k] = v
	}
	p.topicMu.Unlock()

	return Stats{
		Received:  p.received.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		ByTopic:   byTopic,
	}
}

// ResetStats zeroes the processing counters.
func (p *Processor) ResetStats() {
	p.received.Store(0)
	p.processed.Store(0)
	p.failed.Store(0)
	p.topicMu.Lock()
	p.topicStats = nil
	p.topicMu.Unlock()
}

func (p *Processor) countTopic(topic string) {
	if topic == "" {
		topic = "(none)"
	}
	p.topicMu.Lock()
	if p.topicStats == nil {
		p.topicStats = make(map[string]int64)
	}
	p.topicStats[topic]++
	p.topicMu.Unlock()
}

func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	// Header maps built outside net/http may not be canonicalized.
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
