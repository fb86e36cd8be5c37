package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SnapshotMeta describes one stored snapshot. The body is kept as opaque
// JSON; the snapshot package owns its shape.
type SnapshotMeta struct {
	ID            int64
	Tenant        string
	Product       string
	Name          string
	Comment       string
	CreatedAt     time.Time
	ResourceCount int
}

// ErrSnapshotExists is returned when saving under a name already taken for
// the tenant+product.
var ErrSnapshotExists = errors.New("snapshot name already exists")

// ErrSnapshotNotFound is returned when a snapshot lookup misses.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SaveSnapshot persists a snapshot body under meta. Snapshots are immutable
// after creation; deletable as a whole unit only.
func (s *Store) SaveSnapshot(ctx context.Context, meta *SnapshotMeta, body []byte) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (tenant, product, name, comment, created_at, resource_count, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, product, name) DO NOTHING
	`, meta.Tenant, meta.Product, meta.Name, meta.Comment, formatTime(meta.CreatedAt), meta.ResourceCount, string(body))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save snapshot: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("save snapshot %q: %w", meta.Name, ErrSnapshotExists)
	}

	meta.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save snapshot: last insert id: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshot metadata for a tenant+product, newest
// first. Bodies are not loaded.
func (s *Store) ListSnapshots(ctx context.Context, tenant, product string) ([]SnapshotMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant, product, name, comment, created_at, resource_count
		FROM snapshots
		WHERE tenant = ? AND product = ?
		ORDER BY created_at DESC
	`, tenant, product)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		var created string
		if err := rows.Scan(&m.ID, &m.Tenant, &m.Product, &m.Name, &m.Comment, &created, &m.ResourceCount); err != nil {
			return nil, fmt.Errorf("list snapshots: scan: %w", err)
		}
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("list snapshots: created_at: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: rows: %w", err)
	}
	return out, nil
}

// GetSnapshot loads a snapshot and its body by name.
func (s *Store) GetSnapshot(ctx context.Context, tenant, product, name string) (SnapshotMeta, []byte, error) {
	var m SnapshotMeta
	var created, body string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant, product, name, comment, created_at, resource_count, body
		FROM snapshots
		WHERE tenant = ? AND product = ? AND name = ?
	`, tenant, product, name).Scan(&m.ID, &m.Tenant, &m.Product, &m.Name, &m.Comment, &created, &m.ResourceCount, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotMeta{}, nil, fmt.Errorf("snapshot %q: %w", name, ErrSnapshotNotFound)
	}
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("get snapshot: %w", err)
	}
	if m.CreatedAt, err = parseTime(created); err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("get snapshot: created_at: %w", err)
	}
	return m, []byte(body), nil
}

// DeleteSnapshot removes a snapshot by name.
func (s *Store) DeleteSnapshot(ctx context.Context, tenant, product, name string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots WHERE tenant = ? AND product = ? AND name = ?
	`, tenant, product, name)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("snapshot %q: %w", name, ErrSnapshotNotFound)
	}
	return nil
}
