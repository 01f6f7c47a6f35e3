package entitlement

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Source defines how catalog records are loaded.
type Source interface {
	Load(ctx context.Context) (map[Tier]Record, error)
}

// Catalog is the immutable tier-to-entitlements mapping. Construct it once at
// startup and share it freely; Lookup never mutates state.
type Catalog struct {
	records map[Tier]Record
}

// NewCatalog loads and validates the catalog from src. Any missing tier,
// missing daily-checks limit, or unknown capability is a configuration error:
// the process must not start serving traffic with a broken catalog.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("entitlement: Source is required")
	}

	loaded, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadSource, err)
	}
	if len(loaded) == 0 {
		return nil, ErrEmptyCatalog
	}

	records := make(map[Tier]Record, len(loaded))
	for tier, rec := range loaded {
		if !tier.Valid() {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("%w: %d", ErrUnknownTier, int(tier)))
		}
		if _, ok := rec.Limits[LimitDailyChecks]; !ok {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("tier %s is missing the %q limit", tier, LimitDailyChecks))
		}
		for _, c := range rec.Capabilities {
			if !slices.Contains(knownCapabilities, c) {
				return nil, errors.Join(ErrInvalidCatalog,
					fmt.Errorf("%w: %q on tier %s", ErrUnknownCapability, c, tier))
			}
		}
		records[tier] = rec.clone()
	}

	for _, tier := range Tiers() {
		if _, ok := records[tier]; !ok {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("tier %s has no entitlement record", tier))
		}
	}

	return &Catalog{records: records}, nil
}

// Lookup returns the entitlement record for the given tier. The returned
// record is a copy; callers cannot corrupt the catalog. An unknown tier maps
// to an empty record, which denies every capability and every limit.
func (c *Catalog) Lookup(tier Tier) Record {
	rec, ok := c.records[tier]
	if !ok {
		return Record{}
	}
	return rec.clone()
}
