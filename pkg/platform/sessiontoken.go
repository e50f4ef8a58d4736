package platform

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// issuedAtTolerance bounds how far in the future a token's iat may sit
// before we reject it (platform clock skew).
const issuedAtTolerance = 5 * time.Minute

// SessionTokenClaims carries the platform's custom claims alongside the
// registered set. We only rely on dest for shop identification.
type SessionTokenClaims struct {
	jwt.RegisteredClaims

	Dest string `json:"dest,omitempty"` // e.g. https://{shop}
}

// IdentityClaims is the validated content of an embedded-app session token.
type IdentityClaims struct {
	ShopDomain string
	Issuer     string
	Audience   []string
	Subject    string
	UserID     int64
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenValidator verifies the platform's embedded-app session tokens
// (JWT, HS256, signed with the app API secret).
type TokenValidator struct {
	APIKey     string
	APISecret  string
	ShopSuffix string

	// Now overrides the validation clock; nil means time.Now.
	Now func() time.Time
}

// Validate verifies the token's signature and structure, then re-checks the
// issuer suffix, audience, expiry, and issued-at independently of the JWT
// library. Failures are reported as the package's typed token errors; raw
// library errors never escape.
func (v TokenValidator) Validate(tokenString string) (*IdentityClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrEmptyToken
	}
	if v.APISecret == "" {
		return nil, fmt.Errorf("%w: api secret not configured", ErrTokenUnsupported)
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &SessionTokenClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(v.APISecret), nil
	})
	if err != nil {
		return nil, translateTokenError(err)
	}
	if !tok.Valid {
		return nil, ErrTokenSignature
	}

	// The parser already checked exp/nbf, but the checks below are the
	// contract; keep them independent of library behavior.
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(issuedAtTolerance)) {
		return nil, fmt.Errorf("%w: issued too far in the future", ErrTokenMalformed)
	}

	suffix := v.ShopSuffix
	if suffix == "" {
		suffix = DefaultShopSuffix
	}
	if claims.Issuer == "" || !strings.Contains(claims.Issuer, "."+suffix) {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidShopDomain, claims.Issuer)
	}
	if v.APIKey != "" && !audContains(claims.Audience, v.APIKey) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrTokenUnsupported)
	}

	shopDomain := shopFromClaims(claims)
	if shopDomain == "" {
		return nil, fmt.Errorf("%w: no shop in token", ErrTokenMalformed)
	}
	if _, err := ValidateShopDomain(shopDomain, suffix); err != nil {
		return nil, err
	}

	out := &IdentityClaims{
		ShopDomain: shopDomain,
		Issuer:     claims.Issuer,
		Audience:   []string(claims.Audience),
		Subject:    claims.Subject,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if uid, err := strconv.ParseInt(claims.Subject, 10, 64); err == nil {
		out.UserID = uid
	}
	return out, nil
}

// MintSessionToken signs a session token the way the platform would.
// Used by tests and local tooling; never by production request paths.
func MintSessionToken(apiKey, apiSecret, shopDomain string, userID int64, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shopDomain,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{apiKey},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Dest: "https://" + shopDomain,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(apiSecret))
}

// ExtractShopUnsafe decodes the token's payload segment without verifying
// the signature and returns the shop domain from the dest claim, or "" when
// it cannot be read. Routing convenience only; the result is untrusted.
func ExtractShopUnsafe(tokenString string) string {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var claims SessionTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return shopFromClaims(&claims)
}

func translateTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func audContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func shopFromClaims(c *SessionTokenClaims) string {
	// Prefer dest: "https://{shop}".
	if s := trimShopURL(c.Dest); s != "" {
		return s
	}
	// Fallback: issuer carries a url-ish shop value.
	return trimShopURL(c.Issuer)
}

func trimShopURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
