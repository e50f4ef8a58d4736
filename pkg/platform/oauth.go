package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// OAuth validates the platform's app-installation handshake and exchanges
// authorization codes for access credentials.
type OAuth struct {
	HTTPClient *http.Client
	APIKey     string
	APISecret  string
	ShopSuffix string
}

// AccessToken is the platform's response to a successful code exchange.
type AccessToken struct {
	Token  string
	Scopes []string
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// BuildAuthorizationURL returns the URL the merchant is redirected to when
// installing the app. Scopes are joined with commas per the platform's
// convention; state is optional.
func (o OAuth) BuildAuthorizationURL(shop string, scopes []string, redirectURI, state string) (string, error) {
	domain, err := ValidateShopDomain(shop, o.ShopSuffix)
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: "https",
		Host:   domain,
		Path:   "/admin/oauth/authorize",
	}
	q := u.Query()
	q.Set("client_id", o.APIKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	if strings.TrimSpace(state) != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ValidateCallback verifies the installation callback: the shop domain must
// be well-formed, the code non-empty, and the hex HMAC over the remaining
// query parameters (sorted by key, hmac/signature excluded) must match.
// All failures, including internal ones, report false rather than an error;
// the callback is untrusted input.
func (o OAuth) ValidateCallback(shop, code, hmacDigest, state string, params url.Values) bool {
	if _, err := ValidateShopDomain(shop, o.ShopSuffix); err != nil {
		return false
	}
	if strings.TrimSpace(code) == "" {
		return false
	}
	if hmacDigest == "" || o.APISecret == "" {
		return false
	}

	var keys []string
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range params[k] {
			parts = append(parts, k+"="+strings.ReplaceAll(v, "&", "%26"))
		}
	}
	msg := strings.Join(parts, "&")

	return VerifyHex(o.APISecret, []byte(msg), hmacDigest)
}

// ValidateCallbackQuery is a convenience for HTTP handlers holding the raw
// query values.
func (o OAuth) ValidateCallbackQuery(params url.Values) bool {
	return o.ValidateCallback(
		params.Get("shop"),
		params.Get("code"),
		params.Get("hmac"),
		params.Get("state"),
		params,
	)
}

// ExchangeCodeForToken trades an authorization code for an access token via
// the platform's token endpoint. The call is timeout-bounded; validation
// failures are reported before any network round-trip.
func (o OAuth) ExchangeCodeForToken(ctx context.Context, shop, code string) (*AccessToken, error) {
	domain, err := ValidateShopDomain(shop, o.ShopSuffix)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingAuthCode
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	body, _ := json.Marshal(map[string]string{
		"client_id":     o.APIKey,
		"client_secret": o.APISecret,
		"code":          code,
	})

	u := fmt.Sprintf("https://%s/admin/oauth/access_token", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var r accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if r.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned empty access_token")
	}

	return &AccessToken{
		Token:  r.AccessToken,
		Scopes: splitScopes(r.Scope),
	}, nil
}

func splitScopes(scope string) []string {
	var out []string
	for _, s := range strings.Split(scope, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
