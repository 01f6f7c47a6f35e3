package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle webhook boundary.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleProvider implements Provider for Paddle webhook deliveries.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle webhook provider.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingSecret
	}
	return &PaddleProvider{
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// paddleEnvelope is the outer shape shared by every Paddle webhook.
type paddleEnvelope struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// ParseWebhook verifies the Paddle-Signature header against the payload and
// normalizes the event. Verification failures are errors so the caller can
// reject the delivery before anything touches durable state.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrVerificationFail, err)
	}
	if !valid {
		return nil, ErrVerificationFail
	}

	var env paddleEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if env.EventID == "" || env.EventType == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedPayload)
	}

	event := &Event{
		ID:            env.EventID,
		Type:          mapPaddleEventType(env.EventType),
		ProviderEvent: env.EventType,
		Raw:           payload,
	}
	if ts, err := time.Parse(time.RFC3339, env.OccurredAt); err == nil {
		event.OccurredAt = ts
	}

	if custID, ok := env.Data["customer_id"].(string); ok {
		event.CustomerID = custID
	}

	// Paddle does not repeat the customer email on subscription payloads;
	// checkout custom data carries it through the whole event family.
	if customData, ok := env.Data["custom_data"].(map[string]any); ok {
		if email, ok := customData["email"].(string); ok {
			event.Email = email
		}
	}
	if event.Email == "" {
		if email, ok := env.Data["customer_email"].(string); ok {
			event.Email = email
		}
	}

	event.PriceIDs = extractPriceIDs(env.Data, strings.HasPrefix(env.EventType, "transaction."))

	return event, nil
}

// extractPriceIDs walks the items array of a Paddle payload. Transaction
// items carry a flat price_id, subscription items nest it under price.id.
func extractPriceIDs(data map[string]any, transaction bool) []string {
	items, ok := data["items"].([]any)
	if !ok {
		return nil
	}

	var ids []string
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if transaction {
			if id, ok := item["price_id"].(string); ok {
				ids = append(ids, id)
				continue
			}
		}
		if price, ok := item["price"].(map[string]any); ok {
			if id, ok := price["id"].(string); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func mapPaddleEventType(providerEvent string) EventType {
	switch providerEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "transaction.payment_succeeded":
		return EventInvoicePaid
	case "subscription.created", "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	default:
		// Unmapped events keep their provider name so the webhook intake
		// can acknowledge and skip them.
		return EventType(providerEvent)
	}
}
