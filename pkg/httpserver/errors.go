package httpserver

import "errors"

// Sentinel errors wrapped around the underlying net/http failures so
// callers can branch on the phase that failed.
var (
	ErrStart    = errors.New("failed to start HTTP server")
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
