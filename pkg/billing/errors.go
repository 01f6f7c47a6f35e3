package billing

import "errors"

var (
	ErrEmptyPriceMap    = errors.New("billing: price map is empty")
	ErrInvalidTier      = errors.New("billing: invalid tier in price map")
	ErrMissingSecret    = errors.New("billing: webhook secret is required")
	ErrVerificationFail = errors.New("billing: webhook signature verification failed")
	ErrMalformedPayload = errors.New("billing: malformed webhook payload")
)
