package webhook

import "errors"

var (
	// ErrSignature rejects a delivery whose HMAC does not match the body.
	ErrSignature = errors.New("invalid webhook signature")
	// ErrPayload rejects a delivery whose body is not well-formed JSON.
	ErrPayload = errors.New("malformed webhook payload")
)
