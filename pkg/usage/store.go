package usage

import (
	"context"

	"github.com/google/uuid"
)

// Counter is one (user, day) usage row.
type Counter struct {
	UserID uuid.UUID `json:"user_id"`
	Day    Day       `json:"date"`
	Used   int64     `json:"used"`
}

// Store is the persistence contract for usage counters. Increment and
// TryConsume are atomic increment-or-create operations: the uniqueness
// constraint on (user, day) is the mechanism, never read-then-write.
type Store interface {
	// Used returns the count consumed so far on the given day, zero when
	// the counter row does not exist yet. It never creates a row.
	Used(ctx context.Context, userID uuid.UUID, day Day) (int64, error)

	// Increment adds amount unconditionally and returns the new count,
	// creating the row when it is the first touch of the day.
	Increment(ctx context.Context, userID uuid.UUID, day Day, amount int64) (int64, error)

	// TryConsume adds amount only when the result stays within limit. It
	// returns the count after the operation and whether the consumption
	// happened; on refusal the returned count is the untouched current
	// usage. The check and the increment are one atomic operation.
	TryConsume(ctx context.Context, userID uuid.UUID, day Day, amount, limit int64) (int64, bool, error)

	// ResetForDate zeroes every counter of the given day. Operational
	// recovery only, not part of request handling.
	ResetForDate(ctx context.Context, day Day) error

	// ForDate lists counters of a day, highest usage first, capped at limit.
	ForDate(ctx context.Context, day Day, limit int) ([]Counter, error)

	// Range returns the counters of one user between from and to
	// inclusive, keyed by day. Days without a row are absent.
	Range(ctx context.Context, userID uuid.UUID, from, to Day) (map[Day]int64, error)
}
