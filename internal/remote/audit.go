package remote

import (
	"context"
	"log/slog"
	"sync"
)

// LogAuditSink records audit events to a structured logger. Used by the CLI
// where no external audit store is wired in.
type LogAuditSink struct {
	Logger *slog.Logger
}

// Record implements AuditSink.
func (s *LogAuditSink) Record(_ context.Context, ev AuditEvent) {
	s.Logger.Info("audit",
		"run_id", ev.RunID,
		"tenant", ev.Tenant,
		"product", ev.Product,
		"operation", ev.Operation,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"resource_type", ev.ResourceType,
		"resource_id", ev.ResourceID,
		"resource_name", ev.ResourceName,
		"detail", ev.Detail,
	)
}

// MemoryAuditSink collects events in memory for tests and dry runs.
type MemoryAuditSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

// Record implements AuditSink.
func (s *MemoryAuditSink) Record(_ context.Context, ev AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the recorded events.
func (s *MemoryAuditSink) Events() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
