package membership

import "context"

// Store is the persistence contract for membership state. The relational
// store is the synchronization primitive: uniqueness constraints on the
// event id and the email make concurrent duplicate deliveries safe, and
// InTx is the atomicity boundary for every reconciliation.
type Store interface {
	// InTx runs fn against a transactional view of the store. If fn
	// returns an error the whole transaction rolls back and the error is
	// returned unchanged.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// AdmitEvent durably records the event id before any side effect.
	// Returns ErrDuplicateEvent if the id was already admitted, including
	// when a concurrent insert loses the uniqueness race.
	AdmitEvent(ctx context.Context, entry LedgerEntry) error

	// UserByEmail fetches a user by normalized email.
	// Returns ErrUserNotFound when no such user exists.
	UserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser inserts a new user. Returns ErrEmailTaken when the
	// normalized email is already registered.
	CreateUser(ctx context.Context, u *User) error

	// UpdateUser persists tier, customer reference and active flag.
	UpdateUser(ctx context.Context, u *User) error

	// AppendAudit appends one immutable audit row.
	AppendAudit(ctx context.Context, entry *AuditEntry) error
}
