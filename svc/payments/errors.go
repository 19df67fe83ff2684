package payments

import "errors"

var (
	// ErrProcessor wraps every failed processor API call.
	ErrProcessor        = errors.New("payment processor error")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)
