package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tenantsync/internal/document"
)

// WriteResult reports what an upsert did to the cache.
type WriteResult int

const (
	// WriteUnchanged means the stored hash matched; no payload write happened.
	WriteUnchanged WriteResult = iota
	// WriteCreated means the key was absent and a new row was inserted.
	WriteCreated
	// WriteUpdated means the key existed with a different hash.
	WriteUpdated
)

// String implements fmt.Stringer.
func (r WriteResult) String() string {
	switch r {
	case WriteCreated:
		return "created"
	case WriteUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// CachedResource is one remote object as last observed.
type CachedResource struct {
	Tenant       string
	Product      string
	ResourceType string
	RemoteID     string
	Name         string
	Payload      document.Object
	ContentHash  string
	FirstSeenAt  time.Time
	SyncedAt     time.Time
	IsDeleted    bool
}

// UpsertResource writes one observed resource into the cache.
//
// The content hash is computed from the canonical serialization of payload
// and compared to the stored hash for (tenant, resource_type, remote_id):
// the payload column is only written when the hash differs, which is what
// makes repeated imports touch only changed rows. The synced_at stamp and
// the tombstone flag are refreshed on every observation, changed or not, so
// MarkMissing can tombstone by stamp comparison afterwards.
func (s *Store) UpsertResource(ctx context.Context, tenant, product, resourceType, remoteID, name string, payload document.Object, syncedAt time.Time) (WriteResult, error) {
	canonical, err := document.MarshalCanonical(payload)
	if err != nil {
		return WriteUnchanged, fmt.Errorf("upsert resource: marshal payload: %w", err)
	}
	hash, err := document.Hash(payload)
	if err != nil {
		return WriteUnchanged, fmt.Errorf("upsert resource: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WriteUnchanged, fmt.Errorf("upsert resource: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existingHash string
	err = tx.QueryRowContext(ctx, `
		SELECT content_hash FROM resources
		WHERE tenant = ? AND resource_type = ? AND remote_id = ?
	`, tenant, resourceType, remoteID).Scan(&existingHash)

	var result WriteResult
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO resources
			(tenant, product, resource_type, remote_id, name, payload, content_hash, first_seen_at, synced_at, is_deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		`, tenant, product, resourceType, remoteID, name, string(canonical), hash, formatTime(syncedAt), formatTime(syncedAt))
		if err != nil {
			return WriteUnchanged, fmt.Errorf("upsert resource: insert: %w", err)
		}
		result = WriteCreated

	case err != nil:
		return WriteUnchanged, fmt.Errorf("upsert resource: select: %w", err)

	case existingHash != hash:
		// Payload and hash change together in one statement, keeping the
		// hash-equals-digest-of-payload invariant atomic.
		_, err = tx.ExecContext(ctx, `
			UPDATE resources
			SET name = ?, payload = ?, content_hash = ?, synced_at = ?, is_deleted = 0
			WHERE tenant = ? AND resource_type = ? AND remote_id = ?
		`, name, string(canonical), hash, formatTime(syncedAt), tenant, resourceType, remoteID)
		if err != nil {
			return WriteUnchanged, fmt.Errorf("upsert resource: update: %w", err)
		}
		result = WriteUpdated

	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE resources
			SET synced_at = ?, is_deleted = 0
			WHERE tenant = ? AND resource_type = ? AND remote_id = ?
		`, formatTime(syncedAt), tenant, resourceType, remoteID)
		if err != nil {
			return WriteUnchanged, fmt.Errorf("upsert resource: touch: %w", err)
		}
		result = WriteUnchanged
	}

	if err := tx.Commit(); err != nil {
		return WriteUnchanged, fmt.Errorf("upsert resource: commit: %w", err)
	}
	return result, nil
}

// MissingResource identifies one row tombstoned by MarkMissing.
type MissingResource struct {
	RemoteID string
	Name     string
}

// MarkMissing tombstones every live row of the type whose synced_at stamp
// predates the current run start, i.e. every previously-seen id absent from
// the latest full fetch. Rows are never physically removed so historical
// diffs stay meaningful. Only call this for types where absence is a
// deletion signal.
func (s *Store) MarkMissing(ctx context.Context, tenant, resourceType string, runStart time.Time) ([]MissingResource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT remote_id, name FROM resources
		WHERE tenant = ? AND resource_type = ? AND is_deleted = 0 AND synced_at < ?
	`, tenant, resourceType, formatTime(runStart))
	if err != nil {
		return nil, fmt.Errorf("mark missing: select: %w", err)
	}
	defer rows.Close()

	var missing []MissingResource
	for rows.Next() {
		var m MissingResource
		if err := rows.Scan(&m.RemoteID, &m.Name); err != nil {
			return nil, fmt.Errorf("mark missing: scan: %w", err)
		}
		missing = append(missing, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark missing: rows: %w", err)
	}

	if len(missing) == 0 {
		return nil, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE resources SET is_deleted = 1
		WHERE tenant = ? AND resource_type = ? AND is_deleted = 0 AND synced_at < ?
	`, tenant, resourceType, formatTime(runStart))
	if err != nil {
		return nil, fmt.Errorf("mark missing: update: %w", err)
	}
	return missing, nil
}

// ResourceFilter selects cached rows. Zero values match everything.
type ResourceFilter struct {
	ResourceType string // exact match when set
	RemoteID     string // exact match when set
	NameContains string // case-insensitive substring when set
}

// QueryResources returns non-tombstoned rows for a tenant+product matching
// the filter, ordered by type then name. The read path never touches the
// remote source.
func (s *Store) QueryResources(ctx context.Context, tenant, product string, filter ResourceFilter) ([]CachedResource, error) {
	q := strings.Builder{}
	q.WriteString(`
		SELECT tenant, product, resource_type, remote_id, name, payload, content_hash, first_seen_at, synced_at, is_deleted
		FROM resources
		WHERE tenant = ? AND product = ? AND is_deleted = 0`)
	args := []any{tenant, product}

	if filter.ResourceType != "" {
		q.WriteString(" AND resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.RemoteID != "" {
		q.WriteString(" AND remote_id = ?")
		args = append(args, filter.RemoteID)
	}
	if filter.NameContains != "" {
		q.WriteString(" AND lower(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.NameContains)+"%")
	}
	q.WriteString(" ORDER BY resource_type, name, remote_id")

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var out []CachedResource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query resources: rows: %w", err)
	}
	return out, nil
}

// GetResource returns one row by key, tombstoned or not.
// Returns (zero, false, nil) when the key has never been cached.
func (s *Store) GetResource(ctx context.Context, tenant, resourceType, remoteID string) (CachedResource, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant, product, resource_type, remote_id, name, payload, content_hash, first_seen_at, synced_at, is_deleted
		FROM resources
		WHERE tenant = ? AND resource_type = ? AND remote_id = ?
	`, tenant, resourceType, remoteID)

	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedResource{}, false, nil
	}
	if err != nil {
		return CachedResource{}, false, err
	}
	return r, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (CachedResource, error) {
	var r CachedResource
	var payload, firstSeen, synced string
	var deleted int
	err := row.Scan(&r.Tenant, &r.Product, &r.ResourceType, &r.RemoteID, &r.Name, &payload, &r.ContentHash, &firstSeen, &synced, &deleted)
	if err != nil {
		return CachedResource{}, err
	}

	r.Payload, err = document.DecodeObject([]byte(payload))
	if err != nil {
		return CachedResource{}, fmt.Errorf("scan resource %s/%s: payload: %w", r.ResourceType, r.RemoteID, err)
	}
	if r.FirstSeenAt, err = parseTime(firstSeen); err != nil {
		return CachedResource{}, fmt.Errorf("scan resource: first_seen_at: %w", err)
	}
	if r.SyncedAt, err = parseTime(synced); err != nil {
		return CachedResource{}, fmt.Errorf("scan resource: synced_at: %w", err)
	}
	r.IsDeleted = deleted != 0
	return r, nil
}
