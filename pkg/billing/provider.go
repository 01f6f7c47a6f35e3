package billing

import (
	"context"
	"time"
)

// EventType is the normalized billing event family. Provider adapters map
// their native event names onto these.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventInvoicePaid         EventType = "invoice.paid"
)

// Event is a verified, normalized webhook event. By the time an Event exists
// the provider signature has been checked; downstream code treats it as an
// authenticated fact about billing state.
type Event struct {
	ID            string    // provider's globally unique event identifier
	Type          EventType // normalized family
	ProviderEvent string    // original provider event name, kept for audit reasons
	Email         string    // customer email, may be empty for malformed events
	CustomerID    string    // provider's customer reference (ctm_xxx)
	PriceIDs      []string  // purchased or currently-active price identifiers
	OccurredAt    time.Time
	Raw           []byte // full payload, persisted in the event ledger
}

// Provider validates and normalizes incoming webhook deliveries.
type Provider interface {
	// ParseWebhook verifies the payload signature and returns the
	// normalized event. A verification failure is an error; it never
	// reaches the event ledger.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
