// Package query implements the demand-driven memoization framework the
// resolver is built on.
//
// A Table memoizes a pure function of (Context, key) for the current
// revision. While a query computes, every other query it reads is
// recorded as a dependency of its result. When an Input changes, the
// revision advances; a later lookup re-validates the recorded
// dependencies and recomputes only when a dependency's VALUE changed,
// not merely because it was re-executed (generation counters per
// entry, in the style of a content-addressed build system).
//
// Queries may have no side effects other than reading other queries
// and emitting diagnostics through Context.Report; diagnostics are
// captured with the result and replayed once per revision on cache
// hits, preserving emission order.
//
// The framework is single-threaded by contract: recursion detection
// uses a call-stack-scoped running marker, and callers break cycles
// explicitly via Table.IsRunning.
package query
