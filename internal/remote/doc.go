// Package remote defines the contracts the sync engines consume: the
// per-tenant resource Source, the classified error taxonomy, the audit
// sink, and the rolling-window rate limiter shared by fetch workers.
//
// Concrete HTTP clients live outside this module and are injected.
package remote
