package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tenantsync/internal/document"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func obj(t *testing.T, src string) document.Object {
	t.Helper()
	o, err := document.DecodeObject([]byte(src))
	require.NoError(t, err)
	return o
}

func TestUpsertResource_CreateThenUnchanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	payload := obj(t, `{"id": 1, "name": "L1", "color": "blue"}`)
	res, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", payload, now)
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, res)

	// Same content with different field order hashes identically.
	reordered := obj(t, `{"color": "blue", "name": "L1", "id": 1}`)
	res, err = s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", reordered, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, WriteUnchanged, res)
}

func TestUpsertResource_UpdateOnContentChange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", obj(t, `{"id": 1, "name": "L1"}`), now)
	require.NoError(t, err)

	res, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", obj(t, `{"id": 1, "name": "L1", "color": "red"}`), now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, WriteUpdated, res)

	r, found, err := s.GetResource(ctx, "acme", "rule_label", "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, document.String("red"), r.Payload["color"])
	assert.Equal(t, document.MustHash(r.Payload), r.ContentHash)
}

func TestMarkMissing_TombstonesStaleRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	firstRun := time.Now().UTC()

	_, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", obj(t, `{"id": 1, "name": "L1"}`), firstRun)
	require.NoError(t, err)
	_, err = s.UpsertResource(ctx, "acme", "swg", "rule_label", "2", "L2", obj(t, `{"id": 2, "name": "L2"}`), firstRun)
	require.NoError(t, err)

	// Second run only observes L2.
	secondRun := firstRun.Add(time.Minute)
	_, err = s.UpsertResource(ctx, "acme", "swg", "rule_label", "2", "L2", obj(t, `{"id": 2, "name": "L2"}`), secondRun)
	require.NoError(t, err)

	missing, err := s.MarkMissing(ctx, "acme", "rule_label", secondRun)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "1", missing[0].RemoteID)
	assert.Equal(t, "L1", missing[0].Name)

	rows, err := s.QueryResources(ctx, "acme", "swg", ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].RemoteID)

	// The tombstoned row still exists for history.
	r, found, err := s.GetResource(ctx, "acme", "rule_label", "1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, r.IsDeleted)
}

func TestUpsertResource_RevivesTombstonedRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run1 := time.Now().UTC()

	_, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", obj(t, `{"id": 1, "name": "L1"}`), run1)
	require.NoError(t, err)
	_, err = s.MarkMissing(ctx, "acme", "rule_label", run1.Add(time.Minute))
	require.NoError(t, err)

	_, err = s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "L1", obj(t, `{"id": 1, "name": "L1"}`), run1.Add(2*time.Minute))
	require.NoError(t, err)

	rows, err := s.QueryResources(ctx, "acme", "swg", ResourceFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestQueryResources_Filters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.UpsertResource(ctx, "acme", "swg", "rule_label", "1", "Alpha", obj(t, `{"id": 1, "name": "Alpha"}`), now)
	require.NoError(t, err)
	_, err = s.UpsertResource(ctx, "acme", "swg", "firewall_rule", "2", "Block-Beta", obj(t, `{"id": 2, "name": "Block-Beta"}`), now)
	require.NoError(t, err)

	rows, err := s.QueryResources(ctx, "acme", "swg", ResourceFilter{ResourceType: "rule_label"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpha", rows[0].Name)

	rows, err = s.QueryResources(ctx, "acme", "swg", ResourceFilter{NameContains: "beta"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Block-Beta", rows[0].Name)

	// Tenant isolation is a hard partition.
	rows, err = s.QueryResources(ctx, "other", "swg", ResourceFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDisabledTypesLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.DisableType(ctx, "acme", "dlp_engine", "NOT_ENTITLED", now))
	// Second disable keeps the original record.
	require.NoError(t, s.DisableType(ctx, "acme", "dlp_engine", "other reason", now.Add(time.Hour)))

	disabled, err := s.DisabledTypes(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, disabled, 1)
	assert.Equal(t, "NOT_ENTITLED", disabled["dlp_engine"].Reason)

	require.NoError(t, s.ClearDisabledTypes(ctx, "acme"))
	disabled, err = s.DisabledTypes(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, disabled)
}

func TestSyncRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC()

	run := &SyncRun{
		ID:             "run-1",
		Tenant:         "acme",
		Product:        "swg",
		StartedAt:      started,
		RequestedTypes: []string{"rule_label"},
		Counters: map[string]TypeCounters{
			"rule_label": {Fetched: 3, Written: 2, Unchanged: 1},
		},
	}
	require.NoError(t, s.BeginRun(ctx, run))

	run.CompletedAt = started.Add(time.Second)
	run.Status = RunStatusSuccess
	require.NoError(t, s.FinalizeRun(ctx, run))

	runs, err := s.ListRuns(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusSuccess, runs[0].Status)
	assert.Equal(t, []string{"rule_label"}, runs[0].RequestedTypes)
	assert.Equal(t, 3, runs[0].Counters["rule_label"].Fetched)
}

func TestSnapshotLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := &SnapshotMeta{
		Tenant: "acme", Product: "swg", Name: "baseline",
		Comment: "golden config", CreatedAt: time.Now().UTC(), ResourceCount: 2,
	}
	require.NoError(t, s.SaveSnapshot(ctx, meta, []byte(`{"rule_label":[]}`)))
	assert.NotZero(t, meta.ID)

	// Names are unique per tenant+product.
	err := s.SaveSnapshot(ctx, &SnapshotMeta{Tenant: "acme", Product: "swg", Name: "baseline", CreatedAt: time.Now().UTC()}, []byte(`{}`))
	assert.ErrorIs(t, err, ErrSnapshotExists)

	got, body, err := s.GetSnapshot(ctx, "acme", "swg", "baseline")
	require.NoError(t, err)
	assert.Equal(t, "golden config", got.Comment)
	assert.JSONEq(t, `{"rule_label":[]}`, string(body))

	require.NoError(t, s.DeleteSnapshot(ctx, "acme", "swg", "baseline"))
	_, _, err = s.GetSnapshot(ctx, "acme", "swg", "baseline")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	err = s.DeleteSnapshot(ctx, "acme", "swg", "baseline")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
