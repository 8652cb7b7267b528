package billing

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrProcessor        = errors.New("payment processor request failed")
)
