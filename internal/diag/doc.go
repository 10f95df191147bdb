// Package diag defines the diagnostic model shared by all resolver phases.
//
// It provides deterministic, serialisable records (Diagnostic) and
// light-weight utilities (Reporter, Bag) that let producers emit
// diagnostics without coupling to storage or formatting. Rendering
// lives in internal/ui; orchestration lives in the driver.
//
// Applicability failures during overload resolution are NOT diagnostics:
// they are plain values threaded back to disambiguation. Only user-facing
// findings (no candidates, ambiguity, forwarding cycles, structural
// errors) go through a Reporter.
package diag
