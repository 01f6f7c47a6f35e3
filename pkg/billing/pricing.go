package billing

import (
	"fmt"

	"github.com/clearclaim/backend/pkg/entitlement"
)

// PriceMap maps provider price identifiers to the tier they purchase.
type PriceMap map[string]entitlement.Tier

// Resolver turns sets of price identifiers into a single tier.
type Resolver struct {
	prices      PriceMap
	defaultTier entitlement.Tier
}

// NewResolver builds a Resolver. defaultTier is returned when a purchase
// contains no recognized price: it should be the lowest paid tier, because a
// purchase did happen even if the SKU is newer than this deployment.
func NewResolver(prices PriceMap, defaultTier entitlement.Tier) (*Resolver, error) {
	if len(prices) == 0 {
		return nil, ErrEmptyPriceMap
	}
	if !defaultTier.Valid() {
		return nil, fmt.Errorf("%w: default %d", ErrInvalidTier, int(defaultTier))
	}
	for priceID, tier := range prices {
		if !tier.Valid() {
			return nil, fmt.Errorf("%w: %q -> %d", ErrInvalidTier, priceID, int(tier))
		}
	}

	copied := make(PriceMap, len(prices))
	for id, tier := range prices {
		copied[id] = tier
	}
	return &Resolver{prices: copied, defaultTier: defaultTier}, nil
}

// ResolvePurchase maps purchased price identifiers to a tier. Unknown prices
// are ignored; among the recognized ones the highest-ranked tier wins. When
// nothing is recognized the configured default tier is returned.
func (r *Resolver) ResolvePurchase(priceIDs []string) entitlement.Tier {
	best := entitlement.Tier(-1)
	for _, id := range priceIDs {
		tier, ok := r.prices[id]
		if !ok {
			continue
		}
		if tier.Compare(best) > 0 {
			best = tier
		}
	}
	if best.Valid() {
		return best
	}
	return r.defaultTier
}

// ResolveSubscriptionState maps the currently-active price identifiers of a
// subscription to a tier. An empty active set means the subscription is gone
// (cancelled or expired) and resolves to the base unpaid tier, unlike an
// unrecognized purchase.
func (r *Resolver) ResolveSubscriptionState(activePriceIDs []string) entitlement.Tier {
	if len(activePriceIDs) == 0 {
		return entitlement.TierFree
	}
	return r.ResolvePurchase(activePriceIDs)
}

// DefaultTier returns the fallback tier for unrecognized purchases.
func (r *Resolver) DefaultTier() entitlement.Tier {
	return r.defaultTier
}
