package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedHandler(name string) Handler {
	return HandlerFunc{HandlerName: name, Fn: func(ctx context.Context, evt *Event) error { return nil }}
}

func TestRegistryExactAndWildcard(t *testing.T) {
	r := NewRegistry()
	r.Register("orders/create", namedHandler("orders"))
	r.Register(WildcardTopic, namedHandler("audit"))
	r.Register("app/uninstalled", namedHandler("uninstall"))

	regs := r.HandlersFor("orders/create")
	assert.Len(t, regs, 2)
	assert.Equal(t, "orders", regs[0].Handler.Name())
	assert.Equal(t, "audit", regs[1].Handler.Name())

	regs = r.HandlersFor("products/update")
	assert.Len(t, regs, 1)
	assert.Equal(t, "audit", regs[0].Handler.Name())
}

func TestRegistryNoMatchIsEmpty(t *testing.T) {
	r := NewRegistry()
	r.Register("orders/create", namedHandler("orders"))

	assert.Empty(t, r.HandlersFor("customers/create"))
}

func TestRegistryCanonicalizesTopics(t *testing.T) {
	r := NewRegistry()
	r.Register(" Orders/Create ", namedHandler("orders"))

	assert.Len(t, r.HandlersFor("orders/create"), 1)
	assert.Equal(t, 1, r.Len())
}
