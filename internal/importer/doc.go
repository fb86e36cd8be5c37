// Package importer pulls a tenant's resource inventory from the remote
// source into the local cache.
//
// Each requested resource type is fetched in full and upserted by content
// hash, so unchanged resources cost no writes. Types that return an
// authorization or entitlement failure are disabled for the tenant and
// skipped on later runs until explicitly reset. Every run is recorded as an
// immutable SyncRun with per-type counters.
package importer
