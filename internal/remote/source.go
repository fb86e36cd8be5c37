package remote

import (
	"context"

	"github.com/roach88/tenantsync/internal/document"
)

// Source is the per-tenant remote resource API consumed by the import and
// push engines. Implementations wrap a concrete product client; every call
// must honor the context deadline, and failures are classified with *Error.
type Source interface {
	// List fetches the full inventory of one resource type.
	List(ctx context.Context, resourceType string) ([]document.Object, error)

	// Create creates a resource and returns its new remote identifier.
	// A same-named existing resource yields KindConflict.
	Create(ctx context.Context, resourceType string, payload document.Object) (string, error)

	// Update overwrites the resource with the given remote identifier.
	Update(ctx context.Context, resourceType, id string, payload document.Object) error
}

// AuditEvent describes one mutating action for the audit trail.
type AuditEvent struct {
	RunID        string
	Tenant       string
	Product      string
	Operation    string // import_config, push_baseline, ...
	Action       string // CREATE, UPDATE, DELETE, DISABLE, READ
	Outcome      string // SUCCESS, FAILURE, N/A
	ResourceType string
	ResourceID   string
	ResourceName string
	Detail       string
}

// AuditSink receives one event per mutating action: create/update during a
// push, per-type disable and tombstoning during an import. Persistence is
// the collaborator's concern.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}
