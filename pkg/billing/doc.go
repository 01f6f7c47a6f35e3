// Package billing is the payment-provider boundary: it resolves purchased
// price identifiers into a subscription tier and normalizes verified provider
// webhooks into events the membership reconciler consumes.
//
// Tier resolution is deliberately forgiving: unknown price identifiers are
// skipped because the provider catalog evolves independently of deployments,
// and when several mapped prices are present the most generous tier wins.
package billing
