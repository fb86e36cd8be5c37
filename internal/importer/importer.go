package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/store"
)

// DefaultWorkers is the default number of concurrent per-type fetch workers.
// Fetches for different resource types share no mutable state, so the only
// contention point is the rate limiter.
const DefaultWorkers = 4

// Engine synchronizes the local cache with a tenant's remote inventory.
type Engine struct {
	store   *store.Store
	source  remote.Source
	limiter *remote.RateLimiter
	audit   remote.AuditSink
	logger  *slog.Logger
	workers int
}

// Option configures the engine.
type Option func(*Engine)

// WithWorkers sets the fetch worker count.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an import engine.
func New(s *store.Store, source remote.Source, limiter *remote.RateLimiter, audit remote.AuditSink, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		source:  source,
		limiter: limiter,
		audit:   audit,
		logger:  logger,
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// typeOutcome is the result of importing one resource type.
type typeOutcome struct {
	resourceType string
	counters     store.TypeCounters
	err          error // per-type failure, recorded but never aborts the run
	fatal        error // tenant-level failure, aborts everything
}

// Run imports a tenant's inventory for one product, optionally restricted
// to an explicit subset of resource types (a targeted import after a single
// mutation, vs a full import).
//
// A failure in one type never aborts the run: authorization and entitlement
// failures disable the type until reset, transient failures land in the
// errored counter. Only a tenant-level fatal error fails the run as a
// whole. Running twice with no remote changes writes zero rows the second
// time.
func (e *Engine) Run(ctx context.Context, tenant string, product registry.Product, types ...string) (*store.SyncRun, error) {
	defs, err := selectDefinitions(product, types)
	if err != nil {
		return nil, err
	}

	disabled, err := e.store.DisabledTypes(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	run := &store.SyncRun{
		ID:             uuid.NewString(),
		Tenant:         tenant,
		Product:        string(product),
		StartedAt:      time.Now().UTC(),
		RequestedTypes: types,
		Counters:       make(map[string]store.TypeCounters, len(defs)),
	}
	if err := e.store.BeginRun(ctx, run); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	outcomes := e.importTypes(ctx, run, defs, disabled)

	var errs []string
	var fatal error
	for _, out := range outcomes {
		run.Counters[out.resourceType] = out.counters
		if out.fatal != nil && fatal == nil {
			fatal = out.fatal
		}
		if out.err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", out.resourceType, out.err))
		}
	}
	sort.Strings(errs)

	run.CompletedAt = time.Now().UTC()
	switch {
	case fatal != nil:
		run.Status = store.RunStatusFailed
		run.ErrorDetail = fatal.Error()
	case len(errs) > 0:
		run.Status = store.RunStatusPartial
		run.ErrorDetail = strings.Join(errs, "\n")
	default:
		run.Status = store.RunStatusSuccess
	}

	if err := e.store.FinalizeRun(ctx, run); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	totals := run.Totals()
	e.logger.Info("import finished",
		"run_id", run.ID, "tenant", tenant, "product", product,
		"status", run.Status, "fetched", totals.Fetched, "written", totals.Written,
		"unchanged", totals.Unchanged, "errored", totals.Errored, "deleted", totals.Deleted)

	if fatal != nil {
		return run, fatal
	}
	return run, nil
}

// ResetDisabled clears every disabled-type record for a tenant so the next
// import attempts them again.
func (e *Engine) ResetDisabled(ctx context.Context, tenant string) error {
	return e.store.ClearDisabledTypes(ctx, tenant)
}

func selectDefinitions(product registry.Product, types []string) ([]registry.Definition, error) {
	all := registry.Definitions(product)
	if len(types) == 0 {
		return all, nil
	}

	byType := make(map[string]registry.Definition, len(all))
	for _, d := range all {
		byType[d.Type] = d
	}
	out := make([]registry.Definition, 0, len(types))
	for _, t := range types {
		d, ok := byType[t]
		if !ok {
			return nil, remote.NewError(remote.KindFatal, t, "unknown resource type")
		}
		out = append(out, d)
	}
	return out, nil
}

// importTypes fans the definitions out over a bounded worker pool. A fatal
// outcome cancels the remaining work; in-flight fetches finish, no new type
// begins.
func (e *Engine) importTypes(ctx context.Context, run *store.SyncRun, defs []registry.Definition, disabled map[string]store.DisabledType) []typeOutcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan registry.Definition)
	results := make(chan typeOutcome, len(defs))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for def := range tasks {
				out := e.importOne(ctx, run, def, disabled)
				if out.fatal != nil {
					cancel()
				}
				results <- out
			}
		}()
	}

feed:
	for _, def := range defs {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- def:
		}
	}
	close(tasks)
	wg.Wait()
	close(results)

	outcomes := make([]typeOutcome, 0, len(defs))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// importOne fetches and upserts a single resource type.
func (e *Engine) importOne(ctx context.Context, run *store.SyncRun, def registry.Definition, disabled map[string]store.DisabledType) typeOutcome {
	out := typeOutcome{resourceType: def.Type}

	if _, off := disabled[def.Type]; off {
		// Zero counters; the type stays excluded until an explicit reset.
		return out
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		out.err = err
		out.counters.Errored++
		return out
	}

	items, err := e.source.List(ctx, def.Type)
	if err != nil {
		switch {
		case remote.IsFatal(err):
			out.fatal = err
		case remote.IsAuthError(err):
			if derr := e.store.DisableType(ctx, run.Tenant, def.Type, err.Error(), run.StartedAt); derr != nil {
				out.err = derr
				out.counters.Errored++
				return out
			}
			e.audit.Record(ctx, remote.AuditEvent{
				RunID: run.ID, Tenant: run.Tenant, Product: run.Product,
				Operation: "import_config", Action: "DISABLE", Outcome: "N/A",
				ResourceType: def.Type, Detail: err.Error(),
			})
			e.logger.Warn("resource type disabled", "tenant", run.Tenant, "type", def.Type, "reason", err)
		default:
			out.err = err
			out.counters.Errored++
		}
		return out
	}

	for _, item := range items {
		remoteID := document.NaturalKey(item, def.IDField)
		if remoteID == "" {
			continue
		}
		name := document.NaturalKey(item, def.NameField)

		result, err := e.store.UpsertResource(ctx, run.Tenant, run.Product, def.Type, remoteID, name, item, run.StartedAt)
		if err != nil {
			out.err = err
			out.counters.Errored++
			return out
		}
		out.counters.Fetched++
		if result == store.WriteUnchanged {
			out.counters.Unchanged++
		} else {
			out.counters.Written++
		}
	}

	// Absence from a successful full fetch is a deletion signal only for
	// types configured that way; audit-style types are append-only.
	if def.DeleteByAbsence {
		missing, err := e.store.MarkMissing(ctx, run.Tenant, def.Type, run.StartedAt)
		if err != nil {
			out.err = err
			out.counters.Errored++
			return out
		}
		out.counters.Deleted = len(missing)
		for _, m := range missing {
			e.audit.Record(ctx, remote.AuditEvent{
				RunID: run.ID, Tenant: run.Tenant, Product: run.Product,
				Operation: "import_config", Action: "DELETE", Outcome: "SUCCESS",
				ResourceType: def.Type, ResourceID: m.RemoteID, ResourceName: m.Name,
			})
		}
	}

	return out
}
