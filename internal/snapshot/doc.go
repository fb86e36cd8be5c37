// Package snapshot captures point-in-time copies of a tenant's cached
// configuration and computes field-level diffs between any two of them,
// including a synthetic live view over the current cache.
package snapshot
