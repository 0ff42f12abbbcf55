// Package analytics contains the guest engagement domain: the activity
// log, per-event metrics records, and the services that roll raw
// activities into the aggregate numbers the dashboard consumes.
//
// The package is persistence-agnostic. Stores implement the Store and
// EventDirectory interfaces declared here; pkg/storage provides an
// in-memory implementation and pkg/storage/postgres the production one.
//
// Key semantics:
//   - Activity log entries are append-only. Only the processed flag is
//     ever mutated, via an idempotent bulk operation.
//   - Metrics records are keyed by (event id, period type). At most one
//     record exists per key; writes go through an atomic upsert.
//   - Cross-event aggregation sums only events that have a Total-period
//     record. Events with no record yet are excluded from TotalEvents
//     and ActiveEvents, not zero-filled.
package analytics
