package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MyShop", "myshop.example-platform.com"},
		{"my-shop", "my-shop.example-platform.com"},
		{"my-shop.example-platform.com", "my-shop.example-platform.com"},
		{"https://my-shop.example-platform.com", "my-shop.example-platform.com"},
		{"http://my-shop.example-platform.com/", "my-shop.example-platform.com"},
		{"  HTTPS://MyShop.Example-Platform.com ", "myshop.example-platform.com"},
		{"", ""},
		{"https://", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeShopDomain(tc.in, ""), "input %q", tc.in)
	}
}

func TestNormalizeShopDomainCustomSuffix(t *testing.T) {
	assert.Equal(t, "myshop.other-platform.dev", NormalizeShopDomain("MyShop", "other-platform.dev"))
}

func TestValidateShopDomain(t *testing.T) {
	got, err := ValidateShopDomain("my-shop", "")
	require.NoError(t, err)
	assert.Equal(t, "my-shop.example-platform.com", got)

	_, err = ValidateShopDomain("", "")
	assert.ErrorIs(t, err, ErrInvalidShopDomain)

	_, err = ValidateShopDomain("https://", "")
	assert.ErrorIs(t, err, ErrInvalidShopDomain)

	// The bare suffix is not a shop.
	_, err = ValidateShopDomain("example-platform.com", "")
	assert.ErrorIs(t, err, ErrInvalidShopDomain)
}
