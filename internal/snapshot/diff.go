package snapshot

import (
	"fmt"
	"io"
	"sort"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/registry"
)

// EntryChange is one resource present in both snapshots with differing
// configuration, expanded into field-level changes.
type EntryChange struct {
	RemoteID string                 `json:"id"`
	Name     string                 `json:"name"`
	Changes  []document.FieldChange `json:"changes"`
}

// TypeDiff holds the changes for one resource type.
type TypeDiff struct {
	ResourceType string        `json:"resource_type"`
	Added        []Entry       `json:"added,omitempty"`
	Removed      []Entry       `json:"removed,omitempty"`
	Changed      []EntryChange `json:"changed,omitempty"`
	Unchanged    int           `json:"unchanged"`
}

// DiffResult is the full comparison of two snapshots. Only types with at
// least one change appear in Types; Unchanged totals still count matches.
type DiffResult struct {
	Types []TypeDiff `json:"types"`
}

// TotalAdded sums added entries across types.
func (d DiffResult) TotalAdded() int {
	n := 0
	for _, t := range d.Types {
		n += len(t.Added)
	}
	return n
}

// TotalRemoved sums removed entries across types.
func (d DiffResult) TotalRemoved() int {
	n := 0
	for _, t := range d.Types {
		n += len(t.Removed)
	}
	return n
}

// TotalChanged sums changed entries across types.
func (d DiffResult) TotalChanged() int {
	n := 0
	for _, t := range d.Types {
		n += len(t.Changed)
	}
	return n
}

// Empty reports whether the two snapshots are configuration-identical.
func (d DiffResult) Empty() bool {
	return d.TotalAdded() == 0 && d.TotalRemoved() == 0 && d.TotalChanged() == 0
}

// Diff compares two snapshots entry by entry within each resource type,
// keyed by remote identifier. An entry counts as changed only when fields
// outside the ignored set differ, so server-managed timestamp churn does
// not register.
func Diff(a, b Contents) DiffResult {
	typeSet := make(map[string]struct{}, len(a)+len(b))
	for t := range a {
		typeSet[t] = struct{}{}
	}
	for t := range b {
		typeSet[t] = struct{}{}
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	var result DiffResult
	for _, rtype := range types {
		aByID := entriesByID(a[rtype])
		bByID := entriesByID(b[rtype])

		td := TypeDiff{ResourceType: rtype}

		for _, entry := range b[rtype] {
			if _, ok := aByID[entry.RemoteID]; !ok {
				td.Added = append(td.Added, entry)
			}
		}
		for _, entry := range a[rtype] {
			old := entry
			cur, ok := bByID[entry.RemoteID]
			if !ok {
				td.Removed = append(td.Removed, old)
				continue
			}
			changes := document.FieldChanges(old.Payload, cur.Payload, registry.DiffIgnoredFields)
			if len(changes) == 0 {
				td.Unchanged++
				continue
			}
			name := cur.Name
			if name == "" {
				name = old.Name
			}
			td.Changed = append(td.Changed, EntryChange{
				RemoteID: entry.RemoteID,
				Name:     name,
				Changes:  changes,
			})
		}

		if len(td.Added) > 0 || len(td.Removed) > 0 || len(td.Changed) > 0 {
			result.Types = append(result.Types, td)
		}
	}
	return result
}

func entriesByID(entries []Entry) map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.RemoteID] = e
	}
	return m
}

// Render writes a human-readable diff report.
func Render(w io.Writer, d DiffResult) {
	if d.Empty() {
		fmt.Fprintln(w, "No configuration changes.")
		return
	}

	fmt.Fprintf(w, "%d added, %d removed, %d changed\n", d.TotalAdded(), d.TotalRemoved(), d.TotalChanged())
	for _, td := range d.Types {
		fmt.Fprintf(w, "\n%s:\n", td.ResourceType)
		for _, e := range td.Added {
			fmt.Fprintf(w, "  + %s (id %s)\n", e.Name, e.RemoteID)
		}
		for _, e := range td.Removed {
			fmt.Fprintf(w, "  - %s (id %s)\n", e.Name, e.RemoteID)
		}
		for _, c := range td.Changed {
			fmt.Fprintf(w, "  ~ %s (id %s)\n", c.Name, c.RemoteID)
			for _, fc := range c.Changes {
				fmt.Fprintf(w, "      %s\n", fc)
			}
		}
	}
}
