// Package usage meters daily operation counts per user. Counters are keyed
// by (user, UTC calendar day); creation on first touch and bounded
// consumption are single atomic storage operations, so concurrent requests
// can neither duplicate a counter row nor oversubscribe a quota.
//
// The current day always comes from an injectable clock pinned to UTC, so
// tests fix the date instead of depending on wall time.
package usage
