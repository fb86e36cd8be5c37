package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Run statuses. A run never fails as a whole because of one type's
// entitlement gap; failed is reserved for tenant-level failures.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// TypeCounters accumulates per-type import statistics.
type TypeCounters struct {
	Fetched   int `json:"fetched"`
	Written   int `json:"written"`
	Unchanged int `json:"unchanged"`
	Errored   int `json:"errored"`
	Deleted   int `json:"deleted"`
}

// SyncRun is one import execution. Immutable once finalized.
type SyncRun struct {
	ID             string
	Tenant         string
	Product        string
	StartedAt      time.Time
	CompletedAt    time.Time
	Status         string
	RequestedTypes []string // nil means all
	Counters       map[string]TypeCounters
	ErrorDetail    string
}

// Totals sums the per-type counters.
func (r *SyncRun) Totals() TypeCounters {
	var t TypeCounters
	for _, c := range r.Counters {
		t.Fetched += c.Fetched
		t.Written += c.Written
		t.Unchanged += c.Unchanged
		t.Errored += c.Errored
		t.Deleted += c.Deleted
	}
	return t
}

func requestedTypesColumn(types []string) string {
	if len(types) == 0 {
		return "all"
	}
	return strings.Join(types, ",")
}

func parseRequestedTypes(col string) []string {
	if col == "" || col == "all" {
		return nil
	}
	return strings.Split(col, ",")
}

// BeginRun inserts a sync run in the running state.
func (s *Store) BeginRun(ctx context.Context, run *SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, tenant, product, started_at, status, requested_types)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Tenant, run.Product, formatTime(run.StartedAt), RunStatusRunning, requestedTypesColumn(run.RequestedTypes))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinalizeRun records the outcome of a run. The row is append-only from the
// caller's perspective: finalize happens exactly once per run.
func (s *Store) FinalizeRun(ctx context.Context, run *SyncRun) error {
	countersJSON, err := json.Marshal(run.Counters)
	if err != nil {
		return fmt.Errorf("finalize run: marshal counters: %w", err)
	}
	totals := run.Totals()

	_, err = s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET completed_at = ?, status = ?, fetched = ?, written = ?, unchanged = ?,
		    errored = ?, deleted = ?, error_detail = ?, type_counters = ?
		WHERE id = ?
	`,
		formatTime(run.CompletedAt), run.Status,
		totals.Fetched, totals.Written, totals.Unchanged, totals.Errored, totals.Deleted,
		nullable(run.ErrorDetail), string(countersJSON), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListRuns returns a tenant's sync runs, newest first, up to limit.
func (s *Store) ListRuns(ctx context.Context, tenant string, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant, product, started_at, completed_at, status, requested_types, error_detail, type_counters
		FROM sync_runs
		WHERE tenant = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []SyncRun
	for rows.Next() {
		var run SyncRun
		var started string
		var completed, errorDetail, counters sql.NullString
		var requested string
		if err := rows.Scan(&run.ID, &run.Tenant, &run.Product, &started, &completed, &run.Status, &requested, &errorDetail, &counters); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("list runs: started_at: %w", err)
		}
		if completed.Valid {
			if run.CompletedAt, err = parseTime(completed.String); err != nil {
				return nil, fmt.Errorf("list runs: completed_at: %w", err)
			}
		}
		run.RequestedTypes = parseRequestedTypes(requested)
		run.ErrorDetail = errorDetail.String
		if counters.Valid && counters.String != "" {
			if err := json.Unmarshal([]byte(counters.String), &run.Counters); err != nil {
				return nil, fmt.Errorf("list runs: counters: %w", err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: rows: %w", err)
	}
	return out, nil
}
