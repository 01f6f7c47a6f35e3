package usage

import "errors"

var (
	ErrInvalidDay    = errors.New("usage: invalid calendar day")
	ErrInvalidAmount = errors.New("usage: amount must be positive")
	ErrStorageFailed = errors.New("usage: storage operation failed")
)
