package platform

import "errors"

var (
	ErrInvalidShopDomain = errors.New("invalid shop domain")
	ErrMissingAuthCode   = errors.New("missing authorization code")
	ErrInvalidHMAC       = errors.New("invalid hmac signature")

	ErrEmptyToken       = errors.New("empty session token")
	ErrTokenExpired     = errors.New("session token expired")
	ErrTokenMalformed   = errors.New("malformed session token")
	ErrTokenSignature   = errors.New("invalid session token signature")
	ErrTokenUnsupported = errors.New("unsupported session token")
)
