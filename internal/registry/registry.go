// Package registry holds the active-slice table (the "active slice
// record" of spec.md §3). It is deliberately not self-locking: the
// single caller, internal/lifecycle.Manager, holds one mutex across both
// this table and the topology graph for the duration of an
// activate/deactivate call (see DESIGN.md).
package registry

import "github.com/okdaichi/netslice/internal/rules"

// ActiveSlice is one row of the active-slice table.
type ActiveSlice struct {
	Name             string
	Paths            [][]int // one path per flow, parallel to the catalog slice's Flows
	ReservedBW       int     // == catalog.Slice.CapacityPct
	Priority         int     // copied from catalog.Slice.Priority at activation time
	RuleSets         []rules.RuleSet
	ShapedInterfaces []string
}

// Edges returns every directed link this slice's paths traverse,
// de-duplicated, as (from, to) pairs. Used by the admission engine to
// find which active slices occupy a given bottleneck link.
func (a ActiveSlice) Edges() [][2]int {
	seen := make(map[[2]int]struct{})
	var out [][2]int
	for _, path := range a.Paths {
		for i := 0; i+1 < len(path); i++ {
			e := [2]int{path[i], path[i+1]}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Table is the active-slice table, keyed by slice name.
type Table struct {
	entries map[string]*ActiveSlice
}

// NewTable returns an empty active-slice table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*ActiveSlice)}
}

// Get returns the active record for name, if any.
func (t *Table) Get(name string) (*ActiveSlice, bool) {
	a, ok := t.entries[name]
	return a, ok
}

// Put inserts or replaces the active record for a.Name.
func (t *Table) Put(a ActiveSlice) {
	cp := a
	t.entries[a.Name] = &cp
}

// Delete removes the active record for name, if present.
func (t *Table) Delete(name string) {
	delete(t.entries, name)
}

// Names returns every active slice name, in name-sorted order — the
// deterministic order spec.md §4.7 requires for victim deactivation.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for n := range t.entries {
		names = append(names, n)
	}
	sortStrings(names)
	return names
}

// OnEdge returns every active slice (besides exclude) whose paths
// traverse the directed link from->to. exclude lets the admission
// engine exclude the candidate slice itself from its own victim search,
// even though (per spec.md §4.5) the candidate is never in the table yet
// when this matters.
func (t *Table) OnEdge(from, to int, exclude string) []ActiveSlice {
	var out []ActiveSlice
	for _, name := range t.Names() {
		if name == exclude {
			continue
		}
		a := t.entries[name]
		for _, e := range a.Edges() {
			if e[0] == from && e[1] == to {
				out = append(out, *a)
				break
			}
		}
	}
	return out
}

// All returns every active record, in name-sorted order.
func (t *Table) All() []ActiveSlice {
	out := make([]ActiveSlice, 0, len(t.entries))
	for _, name := range t.Names() {
		out = append(out, *t.entries[name])
	}
	return out
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
