package platform

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOAuth() OAuth {
	return OAuth{
		APIKey:    "test_api_key",
		APISecret: "test_secret",
	}
}

func signCallbackParams(t *testing.T, secret string, params url.Values) string {
	t.Helper()

	var keys []string
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	// Mirror the platform's canonicalization: sorted key=value joined by &.
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, k+"="+params.Get(k))
	}
	return SignHex(secret, []byte(strings.Join(parts, "&")))
}

func TestBuildAuthorizationURL(t *testing.T) {
	o := testOAuth()

	got, err := o.BuildAuthorizationURL("my-shop", []string{"read_orders", "write_orders"}, "https://app.example.com/v1/auth/callback", "nonce123")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "my-shop.example-platform.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "test_api_key", q.Get("client_id"))
	assert.Equal(t, "read_orders,write_orders", q.Get("scope"))
	assert.Equal(t, "https://app.example.com/v1/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "nonce123", q.Get("state"))
}

func TestBuildAuthorizationURLInvalidShop(t *testing.T) {
	o := testOAuth()

	_, err := o.BuildAuthorizationURL("", nil, "https://app.example.com/cb", "")
	assert.ErrorIs(t, err, ErrInvalidShopDomain)
}

func TestValidateCallback(t *testing.T) {
	o := testOAuth()

	params := url.Values{}
	params.Set("shop", "my-shop.example-platform.com")
	params.Set("code", "authcode123")
	params.Set("state", "nonce123")
	params.Set("timestamp", "1700000000")
	// Extra platform parameters participate in the HMAC input.
	params.Set("host", "YWRtaW4uZXhhbXBsZQ")
	params.Set("hmac", signCallbackParams(t, o.APISecret, params))

	assert.True(t, o.ValidateCallbackQuery(params))
}

func TestValidateCallbackRejectsTamperedParams(t *testing.T) {
	o := testOAuth()

	params := url.Values{}
	params.Set("shop", "my-shop.example-platform.com")
	params.Set("code", "authcode123")
	params.Set("timestamp", "1700000000")
	params.Set("hmac", signCallbackParams(t, o.APISecret, params))

	// Adding a parameter after signing must invalidate the callback.
	params.Set("injected", "1")
	assert.False(t, o.ValidateCallbackQuery(params))
}

func TestValidateCallbackRejections(t *testing.T) {
	o := testOAuth()

	base := func() url.Values {
		params := url.Values{}
		params.Set("shop", "my-shop.example-platform.com")
		params.Set("code", "authcode123")
		params.Set("timestamp", "1700000000")
		params.Set("hmac", signCallbackParams(t, o.APISecret, params))
		return params
	}

	t.Run("missing code", func(t *testing.T) {
		params := base()
		params.Del("code")
		params.Set("hmac", signCallbackParams(t, o.APISecret, params))
		assert.False(t, o.ValidateCallbackQuery(params))
	})

	t.Run("wrong hmac", func(t *testing.T) {
		params := base()
		params.Set("hmac", strings.Repeat("0", 64))
		assert.False(t, o.ValidateCallbackQuery(params))
	})

	t.Run("missing hmac", func(t *testing.T) {
		params := base()
		params.Del("hmac")
		assert.False(t, o.ValidateCallbackQuery(params))
	})

	t.Run("bad shop", func(t *testing.T) {
		params := base()
		params.Set("shop", "")
		assert.False(t, o.ValidateCallbackQuery(params))
	})

	t.Run("signature key excluded from input", func(t *testing.T) {
		params := base()
		// A legacy signature parameter must not change the digest input.
		params.Set("signature", "deadbeef")
		assert.True(t, o.ValidateCallbackQuery(params))
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestExchangeCodeForToken(t *testing.T) {
	o := testOAuth()
	var gotURL string
	o.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"code":"authcode123"`)
		assert.Contains(t, string(body), `"client_id":"test_api_key"`)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"access_token":"tok_abc","scope":"read_orders,write_orders"}`)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})}

	tok, err := o.ExchangeCodeForToken(context.Background(), "my-shop", "authcode123")
	require.NoError(t, err)
	assert.Equal(t, "https://my-shop.example-platform.com/admin/oauth/access_token", gotURL)
	assert.Equal(t, "tok_abc", tok.Token)
	assert.Equal(t, []string{"read_orders", "write_orders"}, tok.Scopes)
}

func TestExchangeCodeForTokenFailsBeforeNetwork(t *testing.T) {
	o := testOAuth()
	o.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no network call expected")
		return nil, nil
	})}

	_, err := o.ExchangeCodeForToken(context.Background(), "", "authcode123")
	assert.ErrorIs(t, err, ErrInvalidShopDomain)

	_, err = o.ExchangeCodeForToken(context.Background(), "my-shop", "  ")
	assert.ErrorIs(t, err, ErrMissingAuthCode)
}

func TestExchangeCodeForTokenUpstreamErrors(t *testing.T) {
	o := testOAuth()

	t.Run("non-2xx", func(t *testing.T) {
		o.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader(`{}`))}, nil
		})}
		_, err := o.ExchangeCodeForToken(context.Background(), "my-shop", "authcode123")
		assert.ErrorContains(t, err, "status=401")
	})

	t.Run("empty token", func(t *testing.T) {
		o.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"scope":"read_orders"}`))}, nil
		})}
		_, err := o.ExchangeCodeForToken(context.Background(), "my-shop", "authcode123")
		assert.ErrorContains(t, err, "empty access_token")
	})
}
