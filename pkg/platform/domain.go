package platform

import "strings"

// DefaultShopSuffix is the platform's shop-domain suffix. Override via
// config when targeting a different platform environment.
const DefaultShopSuffix = "example-platform.com"

// NormalizeShopDomain canonicalizes a free-form shop identifier: strips a
// leading scheme, lowercases, and appends the platform suffix when absent.
// Examples:
// - "MyShop" -> "myshop.example-platform.com"
// - "https://my-shop.example-platform.com/" -> "my-shop.example-platform.com"
func NormalizeShopDomain(shop, suffix string) string {
	if suffix == "" {
		suffix = DefaultShopSuffix
	}
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return ""
	}
	if !strings.HasSuffix(s, "."+suffix) && s != suffix {
		s = s + "." + suffix
	}
	return s
}

// ValidateShopDomain normalizes shop and fails with ErrInvalidShopDomain
// when the result is empty or does not end with the platform suffix.
func ValidateShopDomain(shop, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultShopSuffix
	}
	s := NormalizeShopDomain(shop, suffix)
	if s == "" || !strings.HasSuffix(s, "."+suffix) {
		return "", ErrInvalidShopDomain
	}
	return s, nil
}
