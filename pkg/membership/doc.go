// Package membership owns user tier state: it ingests verified billing
// events exactly once, derives the new tier, applies the transition and
// writes an immutable audit trail.
//
// Idempotency is enforced inside the service entry points, not left to the
// caller: every webhook-driven operation admits its event into the durable
// ledger first, inside the same transaction as the tier change. A replayed
// event id surfaces as ErrDuplicateEvent with zero side effects.
package membership
