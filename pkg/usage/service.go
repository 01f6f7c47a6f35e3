package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clearclaim/backend/pkg/entitlement"
)

// Clock supplies the current time. Tests inject a fixed clock to pin the
// metering day.
type Clock func() time.Time

// DayUsage is one day of a user's usage history.
type DayUsage struct {
	Day  Day   `json:"date"`
	Used int64 `json:"used"`
}

// Service wraps a Store with the current-day discipline and the unlimited
// sentinel handling.
type Service struct {
	store Store
	clock Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService creates a usage metering service.
// Panics if store is nil to fail fast during initialization.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("usage: Store is required")
	}
	s := &Service{store: store, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current UTC calendar day.
func (s *Service) Today() Day {
	return DayOf(s.clock())
}

// Used returns today's consumed count for the user, zero when untouched.
func (s *Service) Used(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.Used(ctx, userID, s.Today())
}

// Increment adds amount to today's counter and returns the new count.
func (s *Service) Increment(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.store.Increment(ctx, userID, s.Today(), amount)
}

// TryConsume atomically consumes amount from today's quota when it fits
// within limit. A limit of entitlement.Unlimited always consumes.
func (s *Service) TryConsume(ctx context.Context, userID uuid.UUID, amount, limit int64) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, ErrInvalidAmount
	}
	if limit == entitlement.Unlimited {
		used, err := s.store.Increment(ctx, userID, s.Today(), amount)
		return used, err == nil, err
	}
	return s.store.TryConsume(ctx, userID, s.Today(), amount, limit)
}

// Remaining reports how much of limit is left today. An unlimited limit
// returns entitlement.Unlimited, never a number that could be read as
// "none left"; a bounded result is clamped at zero.
func (s *Service) Remaining(ctx context.Context, userID uuid.UUID, limit int64) (int64, error) {
	if limit == entitlement.Unlimited {
		return entitlement.Unlimited, nil
	}
	used, err := s.store.Used(ctx, userID, s.Today())
	if err != nil {
		return 0, err
	}
	return max(0, limit-used), nil
}

// ResetForDate zeroes all counters of one day.
func (s *Service) ResetForDate(ctx context.Context, day Day) error {
	return s.store.ResetForDate(ctx, day)
}

// ForDate lists a day's counters, highest usage first.
func (s *Service) ForDate(ctx context.Context, day Day, limit int) ([]Counter, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ForDate(ctx, day, limit)
}

// History returns the last days of usage for one user, today first, with
// untouched days reported as zero.
func (s *Service) History(ctx context.Context, userID uuid.UUID, days int) ([]DayUsage, error) {
	if days <= 0 {
		days = 7
	}

	today := s.Today()
	counts, err := s.store.Range(ctx, userID, today.AddDays(-(days-1)), today)
	if err != nil {
		return nil, err
	}

	history := make([]DayUsage, 0, days)
	for i := range days {
		day := today.AddDays(-i)
		history = append(history, DayUsage{Day: day, Used: counts[day]})
	}
	return history, nil
}
