package entitlement

import (
	"maps"
	"slices"
)

// Unlimited marks a limit with no ceiling (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Capability is a named boolean feature flag attached to a tier.
type Capability string

const (
	CapabilityProTools        Capability = "pro_tools"
	CapabilityBulkCheck       Capability = "bulk_check"
	CapabilityExport          Capability = "export"
	CapabilityPrioritySupport Capability = "priority_support"
)

// Limit is a named integer ceiling attached to a tier.
type Limit string

const (
	// LimitDailyChecks is the per-day metered-operation quota. Every tier
	// must define it.
	LimitDailyChecks Limit = "daily_checks"
	// LimitCountriesPerCheck caps the number of countries in one request.
	LimitCountriesPerCheck Limit = "countries_per_check"
	// LimitResultVariations caps generated result variations per check.
	LimitResultVariations Limit = "result_variations"
)

// knownCapabilities is used to fail fast on catalog typos.
var knownCapabilities = []Capability{
	CapabilityProTools,
	CapabilityBulkCheck,
	CapabilityExport,
	CapabilityPrioritySupport,
}

// Record holds the entitlements of a single tier.
type Record struct {
	Limits       map[Limit]int64
	Capabilities []Capability
}

// Limit returns the ceiling for l, or 0 when the record does not define it.
// A missing limit is the most restrictive interpretation, never unlimited.
func (r Record) Limit(l Limit) int64 {
	return r.Limits[l]
}

// Has reports whether the capability flag is set for this record.
func (r Record) Has(c Capability) bool {
	return slices.Contains(r.Capabilities, c)
}

func (r Record) clone() Record {
	return Record{
		Limits:       maps.Clone(r.Limits),
		Capabilities: slices.Clone(r.Capabilities),
	}
}
