package store

import (
	"context"
	"fmt"
	"time"
)

// DisabledType records that a resource type hit an authorization failure
// for a tenant and is excluded from imports until explicitly reset.
type DisabledType struct {
	Tenant       string
	ResourceType string
	Reason       string
	DisabledAt   time.Time
}

// DisableType marks a resource type as disabled for a tenant.
// Idempotent: a second disable keeps the original record.
func (s *Store) DisableType(ctx context.Context, tenant, resourceType, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disabled_types (tenant, resource_type, reason, disabled_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant, resource_type) DO NOTHING
	`, tenant, resourceType, reason, formatTime(at))
	if err != nil {
		return fmt.Errorf("disable type: %w", err)
	}
	return nil
}

// DisabledTypes returns the set of disabled types for a tenant.
func (s *Store) DisabledTypes(ctx context.Context, tenant string) (map[string]DisabledType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant, resource_type, reason, disabled_at
		FROM disabled_types WHERE tenant = ?
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("disabled types: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DisabledType)
	for rows.Next() {
		var d DisabledType
		var at string
		if err := rows.Scan(&d.Tenant, &d.ResourceType, &d.Reason, &at); err != nil {
			return nil, fmt.Errorf("disabled types: scan: %w", err)
		}
		if d.DisabledAt, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("disabled types: disabled_at: %w", err)
		}
		out[d.ResourceType] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("disabled types: rows: %w", err)
	}
	return out, nil
}

// ClearDisabledTypes removes every disabled-type record for a tenant.
// This is the only way a disabled type becomes importable again.
func (s *Store) ClearDisabledTypes(ctx context.Context, tenant string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM disabled_types WHERE tenant = ?`, tenant)
	if err != nil {
		return fmt.Errorf("clear disabled types: %w", err)
	}
	return nil
}
