package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clearclaim/backend/pkg/billing"
	"github.com/clearclaim/backend/pkg/entitlement"
)

// PurchaseEvent is a verified checkout/payment event: the customer bought
// the listed prices.
type PurchaseEvent struct {
	EventID           string
	EventType         string
	Email             string
	BillingCustomerID string
	PriceIDs          []string
	Reason            string
	Payload           []byte
}

// SubscriptionEvent is a verified subscription-state event: the listed
// prices are the ones currently active. An empty list means the
// subscription is cancelled or expired.
type SubscriptionEvent struct {
	EventID           string
	EventType         string
	Email             string
	BillingCustomerID string
	ActivePriceIDs    []string
	Reason            string
	Payload           []byte
}

// Service reconciles billing events into tier state. All webhook entry
// points are exactly-once: the event ledger admission happens inside the
// same transaction as the tier transition and the audit row.
type Service struct {
	store    Store
	resolver *billing.Resolver
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, so tests can pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the membership reconciler.
// Panics if store or resolver is nil to fail fast during initialization.
func NewService(store Store, resolver *billing.Resolver, opts ...Option) *Service {
	if store == nil {
		panic("membership: Store is required")
	}
	if resolver == nil {
		panic("membership: billing.Resolver is required")
	}

	s := &Service{
		store:    store,
		resolver: resolver,
		log:      slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromPurchase processes a checkout/payment event. The purchased prices
// resolve to a tier (unrecognized SKUs fall back to the paid default tier);
// the user is created inactive if unseen. Returns ErrDuplicateEvent with no
// side effects when the event id was already admitted.
func (s *Service) FromPurchase(ctx context.Context, ev PurchaseEvent) (*User, error) {
	reason := ev.Reason
	if reason == "" {
		reason = string(billing.EventCheckoutCompleted)
	}
	return s.reconcile(ctx, reconciliation{
		eventID:           ev.EventID,
		eventType:         ev.EventType,
		email:             ev.Email,
		billingCustomerID: ev.BillingCustomerID,
		newTier:           s.resolver.ResolvePurchase(ev.PriceIDs),
		reason:            reason,
		payload:           ev.Payload,
	})
}

// FromSubscriptionState processes a subscription lifecycle event. An empty
// active-price set downgrades to the base unpaid tier. Returns
// ErrDuplicateEvent with no side effects when the event id was already
// admitted.
func (s *Service) FromSubscriptionState(ctx context.Context, ev SubscriptionEvent) (*User, error) {
	reason := ev.Reason
	if reason == "" {
		reason = string(billing.EventSubscriptionUpdated)
	}
	return s.reconcile(ctx, reconciliation{
		eventID:           ev.EventID,
		eventType:         ev.EventType,
		email:             ev.Email,
		billingCustomerID: ev.BillingCustomerID,
		newTier:           s.resolver.ResolveSubscriptionState(ev.ActivePriceIDs),
		reason:            reason,
		payload:           ev.Payload,
	})
}

// Provision applies a tier directly, outside the webhook path (admin action,
// support correction). There is no event id, so no ledger admission; the
// audit row records the operator-supplied reason.
func (s *Service) Provision(ctx context.Context, email string, tier entitlement.Tier, reason string) (*User, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, int(tier))
	}

	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	var user *User
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		user, err = s.apply(ctx, tx, applyArgs{
			email:   email,
			newTier: tier,
			reason:  reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "membership provisioned",
		slog.String("email", email),
		slog.String("tier", tier.String()),
		slog.String("reason", reason),
	)
	return user, nil
}

// UserByEmail fetches a user by email, normalized.
func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	return s.store.UserByEmail(ctx, email)
}

type reconciliation struct {
	eventID           string
	eventType         string
	email             string
	billingCustomerID string
	newTier           entitlement.Tier
	reason            string
	payload           []byte
}

func (s *Service) reconcile(ctx context.Context, rec reconciliation) (*User, error) {
	if rec.eventID == "" {
		return nil, ErrEmptyEventID
	}

	email := NormalizeEmail(rec.email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	var user *User
	err := s.store.InTx(ctx, func(tx Store) error {
		// Ledger admission comes first: if the transaction later rolls
		// back, the admission rolls back with it, and a crash between
		// commit points cannot split the ledger from the side effect.
		if err := tx.AdmitEvent(ctx, LedgerEntry{
			EventID:    rec.eventID,
			EventType:  rec.eventType,
			Payload:    rec.payload,
			ReceivedAt: s.now().UTC(),
		}); err != nil {
			return err
		}

		var err error
		user, err = s.apply(ctx, tx, applyArgs{
			email:             email,
			newTier:           rec.newTier,
			billingCustomerID: rec.billingCustomerID,
			eventID:           rec.eventID,
			reason:            rec.reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "billing event reconciled",
		slog.String("event_id", rec.eventID),
		slog.String("email", email),
		slog.String("tier", user.Tier.String()),
		slog.String("reason", rec.reason),
	)
	return user, nil
}

type applyArgs struct {
	email             string
	newTier           entitlement.Tier
	billingCustomerID string
	eventID           string
	reason            string
}

// apply runs the tier transition inside an open transaction: lookup, create
// or mutate, then exactly one audit row.
func (s *Service) apply(ctx context.Context, tx Store, args applyArgs) (*User, error) {
	now := s.now().UTC()

	user, err := tx.UserByEmail(ctx, args.email)
	switch {
	case err == nil:
		oldTier := user.Tier
		switch {
		case args.newTier != user.Tier:
			user.Tier = args.newTier
			if args.billingCustomerID != "" {
				user.BillingCustomerID = args.billingCustomerID
			}
			user.UpdatedAt = now
			if err := tx.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		case args.billingCustomerID != "" && user.BillingCustomerID == "":
			// Tier unchanged, but a customer reference became available.
			user.BillingCustomerID = args.billingCustomerID
			user.UpdatedAt = now
			if err := tx.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}

		if err := tx.AppendAudit(ctx, &AuditEntry{
			Email:             args.email,
			EventID:           args.eventID,
			OldTier:           &oldTier,
			NewTier:           args.newTier,
			BillingCustomerID: args.billingCustomerID,
			Reason:            args.reason,
			CreatedAt:         now,
		}); err != nil {
			return nil, err
		}
		return user, nil

	case errors.Is(err, ErrUserNotFound):
		user = &User{
			ID:                uuid.New(),
			Email:             args.email,
			Tier:              args.newTier,
			Active:            false, // activation is an onboarding concern
			BillingCustomerID: args.billingCustomerID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return nil, err
		}

		if err := tx.AppendAudit(ctx, &AuditEntry{
			Email:             args.email,
			EventID:           args.eventID,
			OldTier:           nil, // creation
			NewTier:           args.newTier,
			BillingCustomerID: args.billingCustomerID,
			Reason:            args.reason,
			CreatedAt:         now,
		}); err != nil {
			return nil, err
		}
		return user, nil

	default:
		return nil, err
	}
}
