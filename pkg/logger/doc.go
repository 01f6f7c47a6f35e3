// Package logger builds configured slog.Logger instances through
// functional options, with environment presets so services log text at
// debug level in development and JSON at info level in production.
package logger
