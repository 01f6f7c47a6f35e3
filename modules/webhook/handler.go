package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearclaim/backend/pkg/billing"
	"github.com/clearclaim/backend/pkg/membership"
)

// maxPayloadBytes caps webhook bodies; Paddle payloads are a few KB.
const maxPayloadBytes = 1 << 20

// reconciler is the slice of membership.Service the intake needs.
type reconciler interface {
	FromPurchase(ctx context.Context, ev membership.PurchaseEvent) (*membership.User, error)
	FromSubscriptionState(ctx context.Context, ev membership.SubscriptionEvent) (*membership.User, error)
}

// Service receives billing provider webhooks, verifies them, and feeds the
// reconciler. Every terminal outcome except a verification failure answers
// 200 so the provider stops retrying.
type Service struct {
	provider billing.Provider
	members  reconciler
	log      *slog.Logger
}

// New creates the webhook intake.
// Panics if provider or members is nil to fail fast during initialization.
func New(provider billing.Provider, members reconciler, log *slog.Logger) *Service {
	if provider == nil {
		panic("webhook: billing.Provider is required")
	}
	if members == nil {
		panic("webhook: membership reconciler is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{provider: provider, members: members, log: log}
}

// Handler mounts the intake routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/paddle", s.handlePaddle)
	return r
}

func (s *Service) handlePaddle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "unreadable_payload")
		return
	}

	event, err := s.provider.ParseWebhook(ctx, payload, r.Header.Get("Paddle-Signature"))
	if err != nil {
		s.log.WarnContext(ctx, "webhook rejected", "error", err)
		writeStatus(w, http.StatusBadRequest, "verification_failed")
		return
	}

	log := s.log.With("event_id", event.ID, "event_type", event.ProviderEvent)

	if event.Email == "" {
		// Acknowledged so the provider stops retrying; nothing to
		// reconcile without an account identity.
		log.WarnContext(ctx, "webhook carried no customer email")
		writeStatus(w, http.StatusOK, "no_email_found")
		return
	}

	user, err := s.dispatch(ctx, event)
	switch {
	case errors.Is(err, membership.ErrDuplicateEvent):
		log.InfoContext(ctx, "duplicate webhook delivery ignored")
		writeStatus(w, http.StatusOK, "duplicate_ignored")
		return
	case errors.Is(err, errUnhandledEvent):
		writeStatus(w, http.StatusOK, "ignored")
		return
	case err != nil:
		log.ErrorContext(ctx, "webhook reconciliation failed", "error", err)
		writeStatus(w, http.StatusInternalServerError, "reconciliation_failed")
		return
	}

	log.InfoContext(ctx, "webhook reconciled", "email", user.Email, "tier", user.Tier)
	writeStatus(w, http.StatusOK, "processed")
}

var errUnhandledEvent = errors.New("webhook: unhandled event type")

// dispatch routes the normalized event to the matching reconciler entry
// point. Purchases derive the tier from what was bought; subscription
// events derive it from what remains active, so a cancellation with no
// items lands on the base tier.
func (s *Service) dispatch(ctx context.Context, event *billing.Event) (*membership.User, error) {
	switch event.Type {
	case billing.EventCheckoutCompleted, billing.EventInvoicePaid:
		return s.members.FromPurchase(ctx, membership.PurchaseEvent{
			EventID:           event.ID,
			EventType:         event.ProviderEvent,
			Email:             event.Email,
			BillingCustomerID: event.CustomerID,
			PriceIDs:          event.PriceIDs,
			Reason:            event.ProviderEvent,
			Payload:           event.Raw,
		})
	case billing.EventSubscriptionUpdated:
		return s.members.FromSubscriptionState(ctx, membership.SubscriptionEvent{
			EventID:           event.ID,
			EventType:         event.ProviderEvent,
			Email:             event.Email,
			BillingCustomerID: event.CustomerID,
			ActivePriceIDs:    event.PriceIDs,
			Reason:            event.ProviderEvent,
			Payload:           event.Raw,
		})
	case billing.EventSubscriptionDeleted:
		return s.members.FromSubscriptionState(ctx, membership.SubscriptionEvent{
			EventID:           event.ID,
			EventType:         event.ProviderEvent,
			Email:             event.Email,
			BillingCustomerID: event.CustomerID,
			ActivePriceIDs:    nil,
			Reason:            event.ProviderEvent,
			Payload:           event.Raw,
		})
	default:
		return nil, errUnhandledEvent
	}
}
