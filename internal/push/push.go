package push

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/importer"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
	"github.com/roach88/tenantsync/internal/snapshot"
	"github.com/roach88/tenantsync/internal/store"
)

// DefaultMaxPasses caps the reference-resolution loop. Stabilization is the
// primary termination condition; the cap guards against a classification bug
// reintroducing an already-finalized entry.
const DefaultMaxPasses = 10

// Engine reconciles a baseline envelope into a target tenant.
type Engine struct {
	store     *store.Store
	source    remote.Source
	importer  *importer.Engine
	limiter   *remote.RateLimiter
	audit     remote.AuditSink
	logger    *slog.Logger
	maxPasses int
	dryRun    bool
}

// Option configures the engine.
type Option func(*Engine)

// WithMaxPasses sets the hard cap on push passes.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// WithDryRun makes Run classify every entry without issuing any create or
// update call. The report carries would_create/would_update outcomes instead.
func WithDryRun() Option {
	return func(e *Engine) {
		e.dryRun = true
	}
}

// New creates a push engine.
func New(s *store.Store, source remote.Source, imp *importer.Engine, limiter *remote.RateLimiter, audit remote.AuditSink, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		source:    source,
		importer:  imp,
		limiter:   limiter,
		audit:     audit,
		logger:    logger,
		maxPasses: DefaultMaxPasses,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pushItem is one baseline entry marked for create or update, carried across
// passes until it resolves or is finalized as failed.
type pushItem struct {
	def      registry.Definition
	entry    snapshot.Entry
	update   bool
	targetID string
	rec      *Record
}

// Run pushes a baseline envelope into the target tenant.
//
// The run starts with a full import of the target so classification never
// works from stale data. Every baseline entry is then classified against the
// refreshed cache, and the pending creates/updates are executed in push order
// over repeated passes: an entry whose payload still references a source id
// the identifier map cannot resolve is requeued for the next pass. Passes
// stop when everything resolves, when a pass makes no progress, or at the
// pass cap; whatever remains is finalized as failed. Merge-style singleton
// types are handled last, by list union.
//
// Per-entry failures never abort the run. Only a fatal, tenant-level error
// does, and the returned report still covers every entry.
func (e *Engine) Run(ctx context.Context, tenant string, env Envelope) (*Report, error) {
	product := registry.Product(env.Product)
	report := &Report{
		RunID:   uuid.NewString(),
		Tenant:  tenant,
		Product: env.Product,
		DryRun:  e.dryRun,
	}

	if _, err := e.importer.Run(ctx, tenant, product); err != nil {
		return report, fmt.Errorf("push: refresh target state: %w", err)
	}

	live, err := e.liveByName(ctx, tenant, env.Product)
	if err != nil {
		return report, err
	}

	idmap := NewIdentifierMap()
	pending, mergeTypes := e.classify(env, live, idmap, report)

	if e.dryRun {
		for _, it := range pending {
			if it.update {
				it.rec.Outcome = OutcomeWouldUpdate
			} else {
				it.rec.Outcome = OutcomeWouldCreate
			}
			report.Records = append(report.Records, *it.rec)
		}
	} else {
		passes, err := e.runPasses(ctx, report, tenant, pending, idmap)
		report.Passes = passes
		if err != nil {
			return report, err
		}
	}

	if err := e.mergeLists(ctx, report, env, mergeTypes); err != nil {
		return report, err
	}

	e.logger.Info("push finished",
		"run_id", report.RunID, "tenant", tenant, "product", env.Product,
		"dry_run", e.dryRun, "passes", report.Passes,
		"created", report.Count(OutcomeCreated), "updated", report.Count(OutcomeUpdated),
		"failed", report.Count(OutcomeFailed))

	// Pushes never write the cache directly; a targeted re-import refreshes
	// the mutated types instead.
	if !e.dryRun {
		if mutated := mutatedTypes(report); len(mutated) > 0 {
			if _, err := e.importer.Run(ctx, tenant, product, mutated...); err != nil {
				e.logger.Warn("post-push import failed", "tenant", tenant, "error", err)
			}
		}
	}

	return report, nil
}

// liveByName loads the target's cached state indexed by type and natural key.
func (e *Engine) liveByName(ctx context.Context, tenant, product string) (map[string]map[string]store.CachedResource, error) {
	rows, err := e.store.QueryResources(ctx, tenant, product, store.ResourceFilter{})
	if err != nil {
		return nil, fmt.Errorf("push: read target cache: %w", err)
	}
	out := make(map[string]map[string]store.CachedResource)
	for _, r := range rows {
		byName := out[r.ResourceType]
		if byName == nil {
			byName = make(map[string]store.CachedResource)
			out[r.ResourceType] = byName
		}
		byName[r.Name] = r
	}
	return out, nil
}

// classify sorts every baseline entry into a terminal skip outcome, a
// pending create/update, or the merge-type bucket. Entries matched by
// natural key seed the identifier map so references to them resolve on the
// first pass.
func (e *Engine) classify(env Envelope, live map[string]map[string]store.CachedResource, idmap *IdentifierMap, report *Report) ([]*pushItem, []string) {
	var pending []*pushItem
	var mergeTypes []string

	for _, rtype := range registry.PushOrder {
		entries := env.Resources[rtype]
		if len(entries) == 0 {
			continue
		}
		if _, merge := registry.MergeTypes[rtype]; merge {
			mergeTypes = append(mergeTypes, rtype)
			continue
		}
		def, _ := registry.Lookup(rtype)

		for _, entry := range entries {
			name := document.NaturalKey(entry.Payload, def.NameField)
			if name == "" {
				name = entry.Name
			}
			rec := Record{ResourceType: rtype, Name: name, SourceID: entry.RemoteID}

			if isPredefined(rtype, name, entry.Payload) {
				// The target tenant carries its own copy of every predefined
				// instance; map the source id onto it so references to the
				// skipped entry still resolve. Without a visible copy the id
				// maps to itself, best effort.
				if target, found := live[rtype][name]; found {
					idmap.Register(entry.RemoteID, target.RemoteID)
					idmap.Register(name, target.RemoteID)
					rec.TargetID = target.RemoteID
				} else {
					idmap.Register(entry.RemoteID, entry.RemoteID)
				}
				rec.Outcome = OutcomeSkippedPredefined
				report.Records = append(report.Records, rec)
				continue
			}

			target, found := live[rtype][name]
			if found {
				idmap.Register(entry.RemoteID, target.RemoteID)
				idmap.Register(name, target.RemoteID)
				base := document.Strip(entry.Payload, registry.ReadOnlyFields)
				curr := document.Strip(target.Payload, registry.ReadOnlyFields)
				if document.Equal(base, curr) {
					rec.TargetID = target.RemoteID
					rec.Outcome = OutcomeSkippedIdentical
					report.Records = append(report.Records, rec)
					continue
				}
				rec.TargetID = target.RemoteID
			}

			item := &pushItem{def: def, entry: entry, update: found, rec: &rec}
			if found {
				item.targetID = target.RemoteID
			}
			pending = append(pending, item)
		}
	}

	var skipTypes []string
	for rtype := range env.Resources {
		if _, skip := registry.SkipTypes[rtype]; skip {
			skipTypes = append(skipTypes, rtype)
		}
	}
	sort.Strings(skipTypes)
	for _, rtype := range skipTypes {
		def, _ := registry.Lookup(rtype)
		for _, entry := range env.Resources[rtype] {
			name := document.NaturalKey(entry.Payload, def.NameField)
			if name == "" {
				name = entry.Name
			}
			report.Records = append(report.Records, Record{
				ResourceType: rtype, Name: name, SourceID: entry.RemoteID,
				Outcome: OutcomeSkippedType,
			})
		}
	}

	return pending, mergeTypes
}

// isPredefined recognizes system-managed instances of the predefined-skip
// types, by explicit payload flag or known system name.
func isPredefined(rtype, name string, payload document.Object) bool {
	if _, ok := registry.SkipIfPredefined[rtype]; !ok {
		return false
	}
	if flag, ok := payload["predefined"].(document.Bool); ok && bool(flag) {
		return true
	}
	_, known := registry.PredefinedNames[rtype][name]
	return known
}

// runPasses executes the pending creates/updates as a fixed-point iteration:
// each pass pushes every entry whose references now resolve and requeues the
// rest. The loop ends when the pending set empties, stops shrinking, or hits
// the pass cap. Cancellation is honored at pass boundaries only.
func (e *Engine) runPasses(ctx context.Context, report *Report, tenant string, pending []*pushItem, idmap *IdentifierMap) (int, error) {
	passes := 0
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			e.finalizeFailed(report, pending, "run canceled before push")
			return passes, err
		}
		if passes >= e.maxPasses {
			e.finalizeFailed(report, pending, "pass limit reached")
			return passes, nil
		}
		passes++

		var requeued []*pushItem
		for i, it := range pending {
			payload := document.Strip(it.entry.Payload, registry.ReadOnlyFields)
			rewritten, unresolved := document.RewriteRefs(payload, idmap.Resolve)
			if len(unresolved) > 0 {
				it.rec.Detail = "unresolved references: " + strings.Join(unresolved, ", ")
				requeued = append(requeued, it)
				continue
			}
			it.rec.Detail = ""

			obj, ok := rewritten.(document.Object)
			if !ok {
				obj = payload
			}
			if fatal := e.pushOne(ctx, report, tenant, it, obj, passes, idmap); fatal != nil {
				rest := append(requeued, pending[i+1:]...)
				e.finalizeFailed(report, rest, "aborted: "+fatal.Error())
				return passes, fatal
			}
		}

		if len(requeued) == len(pending) {
			e.finalizeFailed(report, requeued, "")
			return passes, nil
		}
		pending = requeued
	}
	return passes, nil
}

// finalizeFailed turns still-pending items into terminal failed records. An
// item that already carries an unresolved-reference detail keeps it.
func (e *Engine) finalizeFailed(report *Report, items []*pushItem, fallback string) {
	for _, it := range items {
		it.rec.Outcome = OutcomeFailed
		if it.rec.Detail == "" {
			it.rec.Detail = fallback
		}
		report.Records = append(report.Records, *it.rec)
	}
}

// pushOne issues a single create or update. A conflict on create means the
// target grew a same-named resource since classification; the fallback looks
// it up by name and updates it instead. The returned error is non-nil only
// for fatal, run-aborting failures; everything else lands in the record.
func (e *Engine) pushOne(ctx context.Context, report *Report, tenant string, it *pushItem, payload document.Object, pass int, idmap *IdentifierMap) error {
	rec := it.rec
	rec.Pass = pass

	fail := func(err error) {
		rec.Outcome = OutcomeFailed
		rec.Detail = err.Error()
		report.Records = append(report.Records, *rec)
		e.audit.Record(ctx, remote.AuditEvent{
			RunID: report.RunID, Tenant: tenant, Product: report.Product,
			Operation: "push_baseline", Action: "PUSH", Outcome: "FAILURE",
			ResourceType: it.def.Type, ResourceName: rec.Name, Detail: err.Error(),
		})
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		fail(err)
		return nil
	}

	action := "UPDATE"
	if it.update {
		if err := e.source.Update(ctx, it.def.Type, it.targetID, payload); err != nil {
			fail(err)
			if remote.IsFatal(err) {
				return err
			}
			return nil
		}
		rec.TargetID = it.targetID
		rec.Outcome = OutcomeUpdated
	} else {
		action = "CREATE"
		id, err := e.source.Create(ctx, it.def.Type, payload)
		switch {
		case err == nil:
			rec.TargetID = id
			rec.Outcome = OutcomeCreated
		case remote.IsConflict(err):
			targetID, lerr := e.resolveConflict(ctx, it.def, rec.Name)
			if lerr != nil {
				fail(lerr)
				if remote.IsFatal(lerr) {
					return lerr
				}
				return nil
			}
			if targetID == "" {
				fail(err)
				return nil
			}
			if aerr := e.limiter.Acquire(ctx); aerr != nil {
				fail(aerr)
				return nil
			}
			if uerr := e.source.Update(ctx, it.def.Type, targetID, payload); uerr != nil {
				fail(uerr)
				if remote.IsFatal(uerr) {
					return uerr
				}
				return nil
			}
			action = "UPDATE"
			rec.TargetID = targetID
			rec.Outcome = OutcomeUpdated
		case remote.IsFatal(err):
			fail(err)
			return err
		default:
			fail(err)
			return nil
		}
	}

	idmap.Register(it.entry.RemoteID, rec.TargetID)
	idmap.Register(rec.Name, rec.TargetID)

	report.Records = append(report.Records, *rec)
	e.audit.Record(ctx, remote.AuditEvent{
		RunID: report.RunID, Tenant: tenant, Product: report.Product,
		Operation: "push_baseline", Action: action, Outcome: "SUCCESS",
		ResourceType: it.def.Type, ResourceID: rec.TargetID, ResourceName: rec.Name,
	})
	return nil
}

// resolveConflict looks up the live resource that caused a create conflict.
// Returns its id, or "" when no same-named resource is found after all. A
// non-nil error means the lookup itself could not run (cancellation, fetch
// failure) and carries the real cause for the record.
func (e *Engine) resolveConflict(ctx context.Context, def registry.Definition, name string) (string, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	items, err := e.source.List(ctx, def.Type)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if document.NaturalKey(item, def.NameField) == name {
			return document.NaturalKey(item, def.IDField), nil
		}
	}
	return "", nil
}

// mergeLists handles the singleton list types: baseline entries absent from
// the target list are appended, existing target entries are never removed.
func (e *Engine) mergeLists(ctx context.Context, report *Report, env Envelope, types []string) error {
	for i, rtype := range types {
		if err := ctx.Err(); err != nil {
			for _, rest := range types[i:] {
				report.Records = append(report.Records, Record{
					ResourceType: rest, Name: rest,
					Outcome: OutcomeFailed, Detail: "run canceled before push",
				})
			}
			return err
		}
		if err := e.mergeOne(ctx, report, rtype, env.Resources[rtype]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) mergeOne(ctx context.Context, report *Report, rtype string, entries []snapshot.Entry) error {
	field := registry.MergeListField[rtype]

	var baseline []string
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, v := range listValues(entry.Payload, field) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			baseline = append(baseline, v)
		}
	}

	rec := Record{ResourceType: rtype, Name: rtype}

	fail := func(err error) {
		rec.Outcome = OutcomeFailed
		rec.Detail = err.Error()
		report.Records = append(report.Records, rec)
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		fail(err)
		return nil
	}
	items, err := e.source.List(ctx, rtype)
	if err != nil {
		fail(err)
		if remote.IsFatal(err) {
			return err
		}
		return nil
	}

	if len(items) == 0 {
		if e.dryRun {
			rec.Outcome = OutcomeWouldCreate
			rec.Detail = fmt.Sprintf("%d entries", len(baseline))
			report.Records = append(report.Records, rec)
			return nil
		}
		if err := e.limiter.Acquire(ctx); err != nil {
			fail(err)
			return nil
		}
		id, err := e.source.Create(ctx, rtype, document.Object{field: toArray(baseline)})
		if err != nil {
			fail(err)
			if remote.IsFatal(err) {
				return err
			}
			return nil
		}
		rec.TargetID = id
		rec.Outcome = OutcomeCreated
		report.Records = append(report.Records, rec)
		e.audit.Record(ctx, remote.AuditEvent{
			RunID: report.RunID, Tenant: report.Tenant, Product: report.Product,
			Operation: "push_baseline", Action: "CREATE", Outcome: "SUCCESS",
			ResourceType: rtype, ResourceID: id, ResourceName: rtype,
		})
		return nil
	}

	liveObj := items[0]
	liveVals := listValues(liveObj, field)
	liveSet := make(map[string]struct{}, len(liveVals))
	for _, v := range liveVals {
		liveSet[v] = struct{}{}
	}
	var missing []string
	for _, v := range baseline {
		if _, ok := liveSet[v]; !ok {
			missing = append(missing, v)
		}
	}

	def, _ := registry.Lookup(rtype)
	rec.TargetID = document.NaturalKey(liveObj, def.IDField)

	if len(missing) == 0 {
		rec.Outcome = OutcomeSkippedIdentical
		report.Records = append(report.Records, rec)
		return nil
	}

	if e.dryRun {
		rec.Outcome = OutcomeWouldUpdate
		rec.Detail = fmt.Sprintf("%d entries to add", len(missing))
		report.Records = append(report.Records, rec)
		return nil
	}

	merged := append(append(make([]string, 0, len(liveVals)+len(missing)), liveVals...), missing...)
	payload := document.Strip(liveObj, registry.ReadOnlyFields)
	payload[field] = toArray(merged)

	if err := e.limiter.Acquire(ctx); err != nil {
		fail(err)
		return nil
	}
	if err := e.source.Update(ctx, rtype, rec.TargetID, payload); err != nil {
		fail(err)
		if remote.IsFatal(err) {
			return err
		}
		return nil
	}
	rec.Outcome = OutcomeUpdated
	rec.Detail = fmt.Sprintf("added %d entries", len(missing))
	report.Records = append(report.Records, rec)
	e.audit.Record(ctx, remote.AuditEvent{
		RunID: report.RunID, Tenant: report.Tenant, Product: report.Product,
		Operation: "push_baseline", Action: "UPDATE", Outcome: "SUCCESS",
		ResourceType: rtype, ResourceID: rec.TargetID, ResourceName: rtype,
		Detail: fmt.Sprintf("added %d entries", len(missing)),
	})
	return nil
}

func listValues(obj document.Object, field string) []string {
	arr, ok := obj[field].(document.Array)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := document.ScalarString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toArray(vals []string) document.Array {
	arr := make(document.Array, len(vals))
	for i, v := range vals {
		arr[i] = document.String(v)
	}
	return arr
}

// mutatedTypes returns the types touched by creates or updates, in record
// order, for the post-push targeted re-import.
func mutatedTypes(r *Report) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range r.Records {
		if rec.Outcome != OutcomeCreated && rec.Outcome != OutcomeUpdated {
			continue
		}
		if _, ok := seen[rec.ResourceType]; ok {
			continue
		}
		seen[rec.ResourceType] = struct{}{}
		out = append(out, rec.ResourceType)
	}
	return out
}
