package gating

import "github.com/clearclaim/backend/pkg/entitlement"

// Reason is a machine-readable denial code, stable for API clients.
type Reason string

const (
	// ReasonUpgradeRequired means the tier lacks the requested capability.
	ReasonUpgradeRequired Reason = "UPGRADE_REQUIRED"
	// ReasonDailyLimitExceeded means the day's quota is exhausted.
	ReasonDailyLimitExceeded Reason = "DAILY_LIMIT_EXCEEDED"
	// ReasonStructuralLimitExceeded means a single request exceeds a
	// per-request shape limit regardless of remaining quota.
	ReasonStructuralLimitExceeded Reason = "STRUCTURAL_LIMIT_EXCEEDED"
)

// Decision is the outcome of a gate check. Denial is a value, not an
// error; Reason is empty when Allowed.
type Decision struct {
	Allowed   bool
	Reason    Reason
	Tier      entitlement.Tier
	Limit     int64
	Used      int64
	Remaining int64
}

func allow(tier entitlement.Tier, limit, used, remaining int64) Decision {
	return Decision{Allowed: true, Tier: tier, Limit: limit, Used: used, Remaining: remaining}
}

func deny(reason Reason, tier entitlement.Tier, limit, used, remaining int64) Decision {
	return Decision{Reason: reason, Tier: tier, Limit: limit, Used: used, Remaining: remaining}
}
