package gating

import (
	"context"

	"github.com/google/uuid"

	"github.com/clearclaim/backend/pkg/entitlement"
	"github.com/clearclaim/backend/pkg/usage"
)

// Request describes one attempt at a metered operation.
type Request struct {
	// Capability, when set, must be granted by the user's tier.
	Capability entitlement.Capability
	// Cardinality is the per-request breadth (countries in one check).
	// Zero skips the structural gate.
	Cardinality int64
	// Amount is the quota cost of the operation. Zero means one.
	Amount int64
}

// Engine evaluates gate checks against an entitlement catalog and the
// usage meter.
type Engine struct {
	catalog *entitlement.Catalog
	usage   *usage.Service
}

// NewEngine creates a gating engine.
// Panics if catalog or meter is nil to fail fast during initialization.
func NewEngine(catalog *entitlement.Catalog, meter *usage.Service) *Engine {
	if catalog == nil {
		panic("gating: entitlement.Catalog is required")
	}
	if meter == nil {
		panic("gating: usage.Service is required")
	}
	return &Engine{catalog: catalog, usage: meter}
}

// Check runs the gates in order for one operation: capability first,
// then the structural limit, then the daily quota. Quota is consumed
// only when every gate passes, so a structurally invalid request costs
// nothing. The returned error is reserved for infrastructure failures;
// a denial comes back as a Decision.
func (e *Engine) Check(ctx context.Context, userID uuid.UUID, tier entitlement.Tier, req Request) (Decision, error) {
	record := e.catalog.Lookup(tier)

	if req.Capability != "" && !record.Has(req.Capability) {
		return deny(ReasonUpgradeRequired, tier, 0, 0, 0), nil
	}

	if req.Cardinality > 0 {
		structural := record.Limit(entitlement.LimitCountriesPerCheck)
		if structural != entitlement.Unlimited && req.Cardinality > structural {
			return deny(ReasonStructuralLimitExceeded, tier, structural, 0, 0), nil
		}
	}

	amount := req.Amount
	if amount <= 0 {
		amount = 1
	}

	quota := record.Limit(entitlement.LimitDailyChecks)
	used, ok, err := e.usage.TryConsume(ctx, userID, amount, quota)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return deny(ReasonDailyLimitExceeded, tier, quota, used, remaining(quota, used)), nil
	}
	return allow(tier, quota, used, remaining(quota, used)), nil
}

// RequireCapability checks a capability gate alone, without touching the
// quota. Used for feature endpoints that are gated but not metered.
func (e *Engine) RequireCapability(tier entitlement.Tier, cap entitlement.Capability) Decision {
	record := e.catalog.Lookup(tier)
	if !record.Has(cap) {
		return deny(ReasonUpgradeRequired, tier, 0, 0, 0)
	}
	return Decision{Allowed: true, Tier: tier}
}

// Remaining reports today's leftover quota for the tier without
// consuming anything. Unlimited tiers report entitlement.Unlimited.
func (e *Engine) Remaining(ctx context.Context, userID uuid.UUID, tier entitlement.Tier) (int64, error) {
	quota := e.catalog.Lookup(tier).Limit(entitlement.LimitDailyChecks)
	return e.usage.Remaining(ctx, userID, quota)
}

func remaining(limit, used int64) int64 {
	if limit == entitlement.Unlimited {
		return entitlement.Unlimited
	}
	return max(0, limit-used)
}
