// Package gating decides whether a user may perform a metered operation.
//
// A check walks three gates in a fixed order: capability, structural
// limit, daily quota. The quota gate is always last because it is the
// only one that consumes anything; a request refused by an earlier gate
// never touches the day's counter. The engine returns a Decision value
// rather than an error, because a denied request is a normal outcome the
// caller renders to the client, not a fault.
package gating
