package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known delivery headers. The platform is not perfectly consistent
// across delivery paths, so any of these may be absent; absence is
// recorded on the event rather than rejecting the delivery.
const (
	HeaderTopic      = "X-Platform-Topic"
	HeaderShopDomain = "X-Platform-Shop-Domain"
	HeaderHMAC       = "X-Platform-Hmac-Sha256"
	HeaderWebhookID  = "X-Platform-Webhook-Id"
	HeaderAPIVersion = "X-Platform-Api-Version"
)

// Event is one verified inbound webhook delivery. Immutable after
// construction; persistence, if any, is a handler's concern.
type Event struct {
	ID             string
	Topic          string
	ShopDomain     string
	APIVersion     string
	Headers        map[string]string
	RawBody        []byte
	Payload        *Payload
	SignatureValid bool
	ReceivedAt     time.Time
}

// Payload is the parsed webhook body: a structured JSON document with
// type-checked accessors. Malformed bodies fail at parse time, not at
// first access.
type Payload struct {
	root any
}

// ParsePayload decodes raw JSON into a Payload. An empty body yields an
// empty document.
func ParsePayload(raw []byte) (*Payload, error) {
	if len(raw) == 0 {
		return &Payload{}, nil
	}
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return &Payload{root: root}, nil
}

// lookup walks the document along path. Each element must be an object key.
func (p *Payload) lookup(path ...string) (any, bool) {
	cur := p.root
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path.
func (p *Payload) String(path ...string) (string, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns the integer at path. JSON numbers with a fractional part
// do not qualify.
func (p *Payload) Int64(path ...string) (int64, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the boolean at path.
func (p *Payload) Bool(path ...string) (bool, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Decimal returns the money amount at path. The platform sends amounts as
// strings ("19.90"); bare JSON numbers are accepted too.
func (p *Payload) Decimal(path ...string) (decimal.Decimal, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return decimal.Decimal{}, false
	}
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Decimal{}, false
	}
}

// Object returns the JSON object at path.
func (p *Payload) Object(path ...string) (map[string]any, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// Array returns the JSON array at path.
func (p *Payload) Array(path ...string) ([]any, bool) {
	v, ok := p.lookup(path...)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}
