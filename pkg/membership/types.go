package membership

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearclaim/backend/pkg/entitlement"
)

// User is the subscription subject. Email is the external identity key and
// is always stored normalized. New users are created inactive; activation
// (onboarding email, password setup) belongs to an external collaborator.
type User struct {
	ID                uuid.UUID        `json:"id"`
	Email             string           `json:"email"`
	Tier              entitlement.Tier `json:"tier"`
	Active            bool             `json:"active"`
	BillingCustomerID string           `json:"billing_customer_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// AuditEntry is one immutable row of the membership audit log. Every
// reconciler invocation writes exactly one, whether or not the tier changed:
// the log records "this event was evaluated for this user".
type AuditEntry struct {
	ID                int64
	Email             string
	EventID           string // empty for non-webhook transitions
	OldTier           *entitlement.Tier
	NewTier           entitlement.Tier
	BillingCustomerID string
	Reason            string
	CreatedAt         time.Time
}

// LedgerEntry records a processed webhook event. The unique event id is the
// idempotency boundary; the raw payload is kept for replay and audit.
type LedgerEntry struct {
	EventID    string
	EventType  string
	Payload    []byte
	ReceivedAt time.Time
}

// NormalizeEmail trims whitespace and lower-cases the address. All email
// comparisons in this package go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
