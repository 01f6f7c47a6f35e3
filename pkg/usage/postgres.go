package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearclaim/backend/pkg/pg"
)

// PostgresStore implements Store on PostgreSQL. All mutation paths are
// single upsert statements over the (user_id, day) unique key, so
// concurrent first touches of a day collapse onto one row and bounded
// consumption cannot oversubscribe.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("usage: pgxpool.Pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Used(ctx context.Context, userID uuid.UUID, day Day) (int64, error) {
	var used int64
	err := s.pool.QueryRow(ctx,
		`SELECT used FROM usage_counters WHERE user_id = $1 AND day = $2::date`,
		userID, string(day)).Scan(&used)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, nil
		}
		return 0, errors.Join(ErrStorageFailed, err)
	}
	return used, nil
}

func (s *PostgresStore) Increment(ctx context.Context, userID uuid.UUID, day Day, amount int64) (int64, error) {
	var used int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO usage_counters (user_id, day, used)
		 VALUES ($1, $2::date, $3)
		 ON CONFLICT (user_id, day) DO UPDATE SET used = usage_counters.used + $3
		 RETURNING used`,
		userID, string(day), amount).Scan(&used)
	if err != nil {
		return 0, errors.Join(ErrStorageFailed, err)
	}
	return used, nil
}

func (s *PostgresStore) TryConsume(ctx context.Context, userID uuid.UUID, day Day, amount, limit int64) (int64, bool, error) {
	// One statement does create-or-increment and the bound check: the
	// SELECT filter refuses a first touch that would already exceed the
	// limit, the DO UPDATE filter refuses an increment that would.
	var used int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO usage_counters (user_id, day, used)
		 SELECT $1, $2::date, $3 WHERE $3 <= $4
		 ON CONFLICT (user_id, day) DO UPDATE SET used = usage_counters.used + $3
		 WHERE usage_counters.used + $3 <= $4
		 RETURNING used`,
		userID, string(day), amount, limit).Scan(&used)
	switch {
	case err == nil:
		return used, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Refused: report the untouched current usage.
		current, err := s.Used(ctx, userID, day)
		if err != nil {
			return 0, false, err
		}
		return current, false, nil
	default:
		return 0, false, errors.Join(ErrStorageFailed, err)
	}
}

func (s *PostgresStore) ResetForDate(ctx context.Context, day Day) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE usage_counters SET used = 0 WHERE day = $1::date`, string(day))
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (s *PostgresStore) ForDate(ctx context.Context, day Day, limit int) ([]Counter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, used FROM usage_counters
		 WHERE day = $1::date ORDER BY used DESC LIMIT $2`,
		string(day), limit)
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	defer rows.Close()

	var out []Counter
	for rows.Next() {
		c := Counter{Day: day}
		if err := rows.Scan(&c.UserID, &c.Used); err != nil {
			return nil, errors.Join(ErrStorageFailed, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return out, nil
}

func (s *PostgresStore) Range(ctx context.Context, userID uuid.UUID, from, to Day) (map[Day]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT day, used FROM usage_counters
		 WHERE user_id = $1 AND day BETWEEN $2::date AND $3::date`,
		userID, string(from), string(to))
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	defer rows.Close()

	out := make(map[Day]int64)
	for rows.Next() {
		var (
			day  time.Time
			used int64
		)
		if err := rows.Scan(&day, &used); err != nil {
			return nil, errors.Join(ErrStorageFailed, err)
		}
		out[DayOf(day)] = used
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return out, nil
}
