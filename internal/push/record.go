package push

import (
	"fmt"
	"io"
	"sort"
)

// Outcome is the terminal state of one baseline entry in a push run.
type Outcome string

const (
	// OutcomeCreated means the entry was created in the target tenant.
	OutcomeCreated Outcome = "created"

	// OutcomeUpdated means an existing same-named target resource was
	// overwritten (or, for merge types, extended).
	OutcomeUpdated Outcome = "updated"

	// OutcomeSkippedIdentical means a same-named target resource already
	// carries an identical payload after read-only fields are stripped.
	OutcomeSkippedIdentical Outcome = "skipped_identical"

	// OutcomeSkippedPredefined means the entry is a system-managed instance
	// that exists in every tenant and is never pushed.
	OutcomeSkippedPredefined Outcome = "skipped_predefined"

	// OutcomeSkippedType means the entry's type is environment-bound and
	// never pushed.
	OutcomeSkippedType Outcome = "skipped_type"

	// OutcomeFailed means the push attempt failed; Detail holds the reason.
	OutcomeFailed Outcome = "failed"

	// OutcomeWouldCreate and OutcomeWouldUpdate are dry-run classifications:
	// what a real push would do, with no API call issued.
	OutcomeWouldCreate Outcome = "would_create"
	OutcomeWouldUpdate Outcome = "would_update"
)

// Record is the outcome of one baseline entry.
type Record struct {
	ResourceType string  `json:"resource_type"`
	Name         string  `json:"name"`
	SourceID     string  `json:"source_id,omitempty"`
	TargetID     string  `json:"target_id,omitempty"`
	Outcome      Outcome `json:"outcome"`
	Detail       string  `json:"detail,omitempty"`
	Pass         int     `json:"pass,omitempty"`
}

// Report is the authoritative result of one push run.
type Report struct {
	RunID   string   `json:"run_id"`
	Tenant  string   `json:"tenant"`
	Product string   `json:"product"`
	DryRun  bool     `json:"dry_run"`
	Passes  int      `json:"passes"`
	Records []Record `json:"records"`
}

// CountsByType summarizes records as outcome counts per resource type.
func (r *Report) CountsByType() map[string]map[Outcome]int {
	out := make(map[string]map[Outcome]int)
	for _, rec := range r.Records {
		m, ok := out[rec.ResourceType]
		if !ok {
			m = make(map[Outcome]int)
			out[rec.ResourceType] = m
		}
		m[rec.Outcome]++
	}
	return out
}

// Count returns the number of records with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}

// Failed returns every failed record, in push order.
func (r *Report) Failed() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Outcome == OutcomeFailed {
			out = append(out, rec)
		}
	}
	return out
}

// NeedsActivation reports whether anything was created or updated, in which
// case the caller should invoke the product's activation step.
func (r *Report) NeedsActivation() bool {
	return r.Count(OutcomeCreated) > 0 || r.Count(OutcomeUpdated) > 0
}

// Render writes a human-readable push report.
func Render(w io.Writer, r *Report) {
	verb := "push"
	if r.DryRun {
		verb = "dry-run"
	}
	fmt.Fprintf(w, "%s against %s (%s): %d entries, %d passes\n",
		verb, r.Tenant, r.Product, len(r.Records), r.Passes)

	counts := r.CountsByType()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		m := counts[t]
		outcomes := make([]string, 0, len(m))
		for o := range m {
			outcomes = append(outcomes, string(o))
		}
		sort.Strings(outcomes)
		fmt.Fprintf(w, "  %s:", t)
		for _, o := range outcomes {
			fmt.Fprintf(w, " %s=%d", o, m[Outcome(o)])
		}
		fmt.Fprintln(w)
	}

	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "failed (%d):\n", len(failed))
		for _, rec := range failed {
			fmt.Fprintf(w, "  %s %q: %s\n", rec.ResourceType, rec.Name, rec.Detail)
		}
	}
	if r.NeedsActivation() {
		fmt.Fprintln(w, "changes were written; activation is required")
	}
}
