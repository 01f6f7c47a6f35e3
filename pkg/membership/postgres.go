package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/pg"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same store
// code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL. The schema's unique indexes
// on webhook_events.event_id and users.email are what make concurrent
// duplicate deliveries and concurrent user creation safe.
type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool // nil when the store is bound to an open transaction
}

// NewPostgresStore returns a Store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("membership: pgxpool.Pool is required")
	}
	return &PostgresStore{db: pool, pool: pool}
}

// InTx opens a transaction and hands fn a store bound to it. Rolls back on
// error, commits otherwise. Nested calls reuse the open transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (s *PostgresStore) AdmitEvent(ctx context.Context, entry LedgerEntry) error {
	if entry.EventID == "" {
		return ErrEmptyEventID
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO webhook_events (event_id, event_type, payload, received_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.EventID, entry.EventType, entry.Payload, entry.ReceivedAt)
	if err != nil {
		// The losing side of a concurrent insert race gets the same
		// outcome as a replay of an old event.
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, email, tier, is_active, COALESCE(billing_customer_id, ''), created_at, updated_at
		 FROM users WHERE email = $1`,
		NormalizeEmail(email))

	u, err := scanUser(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, tier, is_active, billing_customer_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`,
		u.ID, NormalizeEmail(u.Email), u.Tier.String(), u.Active,
		u.BillingCustomerID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *User) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users
		 SET tier = $2, is_active = $3, billing_customer_id = NULLIF($4, ''), updated_at = $5
		 WHERE id = $1`,
		u.ID, u.Tier.String(), u.Active, u.BillingCustomerID, u.UpdatedAt)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	var oldTier *string
	if entry.OldTier != nil {
		v := entry.OldTier.String()
		oldTier = &v
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO membership_audit
		   (email, event_id, old_tier, new_tier, billing_customer_id, reason, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6, $7)
		 RETURNING id`,
		NormalizeEmail(entry.Email), entry.EventID, oldTier, entry.NewTier.String(),
		entry.BillingCustomerID, entry.Reason, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return errors.Join(ErrStorageFailed, err)
	}
	return nil
}

// AuditsByEmail returns the audit trail for one subject, oldest first.
func (s *PostgresStore) AuditsByEmail(ctx context.Context, email string) ([]AuditEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, email, COALESCE(event_id, ''), old_tier, new_tier,
		        COALESCE(billing_customer_id, ''), reason, created_at
		 FROM membership_audit WHERE email = $1 ORDER BY id`,
		NormalizeEmail(email))
	if err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			entry   AuditEntry
			oldTier *string
			newTier string
		)
		if err := rows.Scan(&entry.ID, &entry.Email, &entry.EventID, &oldTier,
			&newTier, &entry.BillingCustomerID, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, errors.Join(ErrStorageFailed, err)
		}
		if oldTier != nil {
			t, err := entitlement.ParseTier(*oldTier)
			if err != nil {
				return nil, errors.Join(ErrStorageFailed, err)
			}
			entry.OldTier = &t
		}
		t, err := entitlement.ParseTier(newTier)
		if err != nil {
			return nil, errors.Join(ErrStorageFailed, err)
		}
		entry.NewTier = t
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailed, err)
	}
	return entries, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u         User
		id        uuid.UUID
		tier      string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &u.Email, &tier, &u.Active, &u.BillingCustomerID,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := entitlement.ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("stored tier: %w", err)
	}
	u.ID = id
	u.Tier = parsed
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return &u, nil
}
