package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadMalformed(t *testing.T) {
	_, err := ParsePayload([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrPayload)

	_, err = ParsePayload([]byte(`not json`))
	assert.ErrorIs(t, err, ErrPayload)
}

func TestParsePayloadEmptyBody(t *testing.T) {
	p, err := ParsePayload(nil)
	require.NoError(t, err)

	_, ok := p.String("anything")
	assert.False(t, ok)
}

func TestPayloadAccessors(t *testing.T) {
	p, err := ParsePayload([]byte(`{
		"id": 820982911,
		"email": "jon@example.com",
		"test": true,
		"total_price": "403.00",
		"customer": {"id": 115310627, "verified_email": true},
		"line_items": [{"quantity": 1}],
		"weight": 1.5
	}`))
	require.NoError(t, err)

	id, ok := p.Int64("id")
	require.True(t, ok)
	assert.Equal(t, int64(820982911), id)

	email, ok := p.String("email")
	require.True(t, ok)
	assert.Equal(t, "jon@example.com", email)

	isTest, ok := p.Bool("test")
	require.True(t, ok)
	assert.True(t, isTest)

	total, ok := p.Decimal("total_price")
	require.True(t, ok)
	assert.Equal(t, "403", total.String())

	// Nested paths walk objects.
	verified, ok := p.Bool("customer", "verified_email")
	require.True(t, ok)
	assert.True(t, verified)

	customer, ok := p.Object("customer")
	require.True(t, ok)
	assert.Contains(t, customer, "id")

	items, ok := p.Array("line_items")
	require.True(t, ok)
	assert.Len(t, items, 1)

	// Bare numbers also qualify as decimals.
	weight, ok := p.Decimal("weight")
	require.True(t, ok)
	assert.Equal(t, "1.5", weight.String())
}

func TestPayloadAccessorsTypeMismatch(t *testing.T) {
	p, err := ParsePayload([]byte(`{"id": "not-a-number", "price": 1.5, "name": 7}`))
	require.NoError(t, err)

	_, ok := p.Int64("id")
	assert.False(t, ok)

	// Fractional numbers are not integers.
	_, ok = p.Int64("price")
	assert.False(t, ok)

	_, ok = p.String("name")
	assert.False(t, ok)

	_, ok = p.Bool("missing")
	assert.False(t, ok)

	_, ok = p.Decimal("id")
	assert.False(t, ok)

	// A path through a non-object fails cleanly.
	_, ok = p.String("id", "nested")
	assert.False(t, ok)
}
