// Package httpserver wraps net/http with graceful shutdown, env-driven
// timeouts, lifecycle hooks, and a health probe handler.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the shutdown timeout.
// Startup and shutdown failures come back wrapped in the ErrStart and
// ErrShutdown sentinels for errors.Is checks.
package httpserver
