package webhook

import "context"

// Handler consumes a verified webhook event. Handlers own their own
// cancellation and retry policy; the dispatcher only isolates their
// failures.
type Handler interface {
	Name() string
	Handle(ctx context.Context, evt *Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, evt *Event) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Handle(ctx context.Context, evt *Event) error {
	return h.Fn(ctx, evt)
}

// Registration binds a topic pattern ("*" or an exact topic) to a handler.
type Registration struct {
	Pattern string
	Handler Handler
}

// Registry holds handler registrations. Register everything at process
// start; the registry is read-only during dispatch and needs no locking.
type Registry struct {
	regs []Registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds pattern to h. Pattern is either WildcardTopic or an exact
// platform topic such as "orders/create".
func (r *Registry) Register(pattern string, h Handler) {
	r.regs = append(r.regs, Registration{Pattern: CanonicalTopic(pattern), Handler: h})
}

// RegisterFunc is a convenience for function handlers.
func (r *Registry) RegisterFunc(pattern, name string, fn func(ctx context.Context, evt *Event) error) {
	r.Register(pattern, HandlerFunc{HandlerName: name, Fn: fn})
}

// HandlersFor returns the registrations matching topic: exact matches plus
// wildcard registrations, in registration order. An empty result is not an
// error; the delivery is simply acknowledged.
func (r *Registry) HandlersFor(topic string) []Registration {
	topic = CanonicalTopic(topic)
	var out []Registration
	for _, reg := range r.regs {
		if reg.Pattern == WildcardTopic || reg.Pattern == topic {
			out = append(out, reg)
		}
	}
	return out
}

// Len reports the number of registrations.
func (r *Registry) Len() int { return len(r.regs) }
