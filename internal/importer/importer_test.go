package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/harness"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/store"
)

// faultySource injects per-type List failures over a real source.
type faultySource struct {
	remote.Source
	listErrs map[string]error
}

func (s *faultySource) List(ctx context.Context, resourceType string) ([]document.Object, error) {
	if err, ok := s.listErrs[resourceType]; ok {
		return nil, err
	}
	return s.Source.List(ctx, resourceType)
}

func newEngine(h *harness.Harness, source remote.Source) *Engine {
	return New(h.Store, source, h.Limiter, h.Audit, h.Logger)
}

func TestRun_SecondImportWritesNothing(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()
	h.Source.Load("rule_label", harness.Objs(t, `[
		{"id": 1, "name": "L1"},
		{"id": 2, "name": "L2"}
	]`))
	h.Source.Load("firewall_rule", harness.Objs(t, `[
		{"id": 10, "name": "R1", "action": "BLOCK"}
	]`))

	eng := newEngine(h, h.Source)

	run1, err := eng.Run(ctx, "acme", registry.ProductSWG)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run1.Status)
	assert.Equal(t, 3, run1.Totals().Written)

	run2, err := eng.Run(ctx, "acme", registry.ProductSWG)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run2.Status)
	assert.Equal(t, 0, run2.Totals().Written)
	assert.Equal(t, 3, run2.Totals().Unchanged)
	for rtype, c := range run2.Counters {
		assert.Zero(t, c.Written, rtype)
	}
}

func TestRun_AuthFailureDisablesTypeWithoutFailingRun(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()
	h.Source.Load("rule_label", harness.Objs(t, `[{"id": 1, "name": "L1"}]`))

	src := &faultySource{Source: h.Source, listErrs: map[string]error{
		"dlp_engine": remote.NewError(remote.KindNotEntitled, "dlp_engine", "not subscribed"),
	}}
	eng := newEngine(h, src)

	run, err := eng.Run(ctx, "acme", registry.ProductSWG)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSuccess, run.Status)
	assert.Zero(t, run.Counters["dlp_engine"].Fetched)
	assert.Equal(t, 1, run.Counters["rule_label"].Written)

	disabled, err := h.Store.DisabledTypes(ctx, "acme")
	require.NoError(t, err)
	_, off := disabled["dlp_engine"]
	assert.True(t, off)

	var disableEvents int
	for _, ev := range h.Audit.Events() {
		if ev.Action == "DISABLE" && ev.ResourceType == "dlp_engine" {
			disableEvents++
		}
	}
	assert.Equal(t, 1, disableEvents)

	// The disabled type stays excluded on the next run, even though the
	// source would now succeed.
	run2, err := newEngine(h, h.Source).Run(ctx, "acme", registry.ProductSWG)
	require.NoError(t, err)
	assert.Zero(t, run2.Counters["dlp_engine"].Fetched)

	// Until an explicit reset.
	require.NoError(t, eng.ResetDisabled(ctx, "acme"))
	disabled, err = h.Store.DisabledTypes(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, disabled)
}

func TestRun_TransientFailureMakesRunPartial(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()
	h.Source.Load("rule_label", harness.Objs(t, `[{"id": 1, "name": "L1"}]`))

	src := &faultySource{Source: h.Source, listErrs: map[string]error{
		"location": remote.NewError(remote.KindTransient, "location", "gateway timeout"),
	}}

	run, err := newEngine(h, src).Run(ctx, "acme", registry.ProductSWG)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusPartial, run.Status)
	assert.Equal(t, 1, run.Counters["location"].Errored)
	assert.Contains(t, run.ErrorDetail, "location")
	// The failing type never aborts the others.
	assert.Equal(t, 1, run.Counters["rule_label"].Written)
}

func TestRun_FatalFailureAbortsRun(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()

	src := &faultySource{Source: h.Source, listErrs: map[string]error{
		"rule_label": remote.NewError(remote.KindFatal, "", "tenant credentials rejected"),
	}}

	run, err := newEngine(h, src).Run(ctx, "acme", registry.ProductSWG, "rule_label")
	require.Error(t, err)
	assert.True(t, remote.IsFatal(err))
	require.NotNil(t, run)
	assert.Equal(t, store.RunStatusFailed, run.Status)
}

func TestRun_DeletionByAbsence(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()
	h.Source.Load("rule_label", harness.Objs(t, `[
		{"id": 1, "name": "L1"},
		{"id": 2, "name": "L2"}
	]`))

	eng := newEngine(h, h.Source)
	_, err := eng.Run(ctx, "acme", registry.ProductSWG, "rule_label")
	require.NoError(t, err)

	h.Source.Load("rule_label", harness.Objs(t, `[{"id": 2, "name": "L2"}]`))
	run, err := eng.Run(ctx, "acme", registry.ProductSWG, "rule_label")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Counters["rule_label"].Deleted)

	rows, err := h.Store.QueryResources(ctx, "acme", "swg", store.ResourceFilter{ResourceType: "rule_label"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].RemoteID)
}

func TestRun_AppendOnlyTypeKeepsAbsentRows(t *testing.T) {
	h := harness.New(t)
	ctx := context.Background()
	h.Source.Load("activity_record", harness.Objs(t, `[
		{"id": 1, "name": "login"},
		{"id": 2, "name": "logout"}
	]`))

	eng := newEngine(h, h.Source)
	_, err := eng.Run(ctx, "acme", registry.ProductSWG, "activity_record")
	require.NoError(t, err)

	h.Source.Load("activity_record", harness.Objs(t, `[{"id": 2, "name": "logout"}]`))
	run, err := eng.Run(ctx, "acme", registry.ProductSWG, "activity_record")
	require.NoError(t, err)
	assert.Zero(t, run.Counters["activity_record"].Deleted)

	rows, err := h.Store.QueryResources(ctx, "acme", "swg", store.ResourceFilter{ResourceType: "activity_record"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_UnknownRequestedType(t *testing.T) {
	h := harness.New(t)
	_, err := newEngine(h, h.Source).Run(context.Background(), "acme", registry.ProductSWG, "no_such_type")
	require.Error(t, err)
	assert.True(t, remote.IsFatal(err))
}
