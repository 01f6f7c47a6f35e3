package membership

import "errors"

var (
	// ErrDuplicateEvent is the "already processed" outcome, not a fault:
	// callers acknowledge the delivery to the provider without retrying.
	ErrDuplicateEvent = errors.New("membership: event already processed")

	ErrUserNotFound  = errors.New("membership: user not found")
	ErrEmailTaken    = errors.New("membership: email already registered")
	ErrInvalidEmail  = errors.New("membership: invalid email")
	ErrEmptyEventID  = errors.New("membership: event id is required")
	ErrInvalidTier   = errors.New("membership: invalid tier")
	ErrStorageFailed = errors.New("membership: storage operation failed")
)
