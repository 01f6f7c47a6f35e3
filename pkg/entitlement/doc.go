// Package entitlement defines subscription tiers and the immutable catalog
// that maps each tier to its capability flags and numeric limits.
//
// The catalog is loaded once at startup from a Source (YAML file or in-memory
// map) and injected into consumers; there is no package-level state. A limit
// value of Unlimited (-1) means the tier has no ceiling for that limit.
//
// Example:
//
//	catalog, err := entitlement.NewCatalog(ctx, entitlement.NewFileSource("config/entitlements.yaml"))
//	if err != nil {
//		log.Fatal(err) // malformed catalog must prevent startup
//	}
//
//	rec := catalog.Lookup(entitlement.TierPro)
//	if rec.Has(entitlement.CapabilityExport) {
//		// ...
//	}
package entitlement
