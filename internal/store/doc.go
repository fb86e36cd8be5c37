// Package store provides SQLite-backed persistence for the resource cache,
// disabled-type records, sync-run history, and snapshots.
//
// Cached payloads are stored as canonical JSON next to their SHA-256
// content hash; an upsert writes the payload only when the hash differs,
// which is what makes repeated imports cheap. Rows are tombstoned, never
// physically deleted, so historical diffs remain meaningful.
//
// Tenant isolation is a hard partition of the keyspace: every operation is
// scoped to a single tenant.
package store
