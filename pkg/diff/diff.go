// Package diff is the snapshot change-tracking engine. It compares two
// operation snapshots keyed by the permission string and classifies every
// difference as New or Deprecated. Inputs are never mutated; the differ builds
// fresh Entry values instead of annotating records in place.
package diff

import (
	"sort"

	"github.com/cloudpeek/azactions/pkg/catalog"
)

// Status classifies a delta entry.
type Status string

const (
	StatusNew        Status = "New"
	StatusDeprecated Status = "Deprecated"
)

// Entry wraps an operation record with its change status. Entries are derived
// values: they are rendered into the history log and never persisted.
type Entry struct {
	Record catalog.OperationRecord
	Status Status
}

// Operations computes the delta between a previous and a current snapshot.
// Placeholder rows carry no permission identity and are excluded before
// comparison. The differ sorts its own placeholder-filtered copies by
// Operation: callers hand over records in whatever order suits them, and
// provider-name order diverges from key order whenever one provider name is a
// dot-extended prefix of another ("A.B.C/y" sorts before "A.B/x").
//
// The scan is a merge over the two sorted sequences and is equivalent to a
// symmetric set difference by key re-sorted by key: a previous key absent from
// current is Deprecated, a current key absent from previous is New, equal keys
// advance both sides without emitting. The result interleaves both statuses in
// key order.
func Operations(previous, current []catalog.OperationRecord) []Entry {
	prev := sortedWithoutPlaceholders(previous)
	cur := sortedWithoutPlaceholders(current)

	var delta []Entry
	i, j := 0, 0
	for i < len(prev) || j < len(cur) {
		switch {
		case j >= len(cur):
			delta = append(delta, Entry{Record: prev[i], Status: StatusDeprecated})
			i++
		case i >= len(prev):
			delta = append(delta, Entry{Record: cur[j], Status: StatusNew})
			j++
		case prev[i].Operation < cur[j].Operation:
			delta = append(delta, Entry{Record: prev[i], Status: StatusDeprecated})
			i++
		case prev[i].Operation > cur[j].Operation:
			delta = append(delta, Entry{Record: cur[j], Status: StatusNew})
			j++
		default:
			i++
			j++
		}
	}
	return delta
}

// Count tallies a delta by status.
func Count(delta []Entry) (added, deprecated int) {
	for _, entry := range delta {
		switch entry.Status {
		case StatusNew:
			added++
		case StatusDeprecated:
			deprecated++
		}
	}
	return added, deprecated
}

// ByStatus projects the entries with the given status, preserving order.
func ByStatus(delta []Entry, status Status) []Entry {
	var out []Entry
	for _, entry := range delta {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	return out
}

// ServiceNames computes the provider-name set difference between two runs.
// Both results are sorted alphabetically. This delta is informational only and
// does not gate the operation-level delta.
func ServiceNames(previous, current []string) (added, removed []string) {
	prev := toSet(previous)
	cur := toSet(current)

	for name := range cur {
		if !prev[name] {
			added = append(added, name)
		}
	}
	for name := range prev {
		if !cur[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func sortedWithoutPlaceholders(records []catalog.OperationRecord) []catalog.OperationRecord {
	out := make([]catalog.OperationRecord, 0, len(records))
	for _, r := range records {
		if r.IsPlaceholder() {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if name != "" {
			set[name] = true
		}
	}
	return set
}
