// Package admission implements the Admission & Preemption Engine (C5):
// per-link residual-capacity checks and victim selection for a
// candidate slice's tentative paths, per spec.md §4.5.
package admission

import (
	"fmt"
	"sort"

	"github.com/okdaichi/netslice/internal/catalog"
	"github.com/okdaichi/netslice/internal/registry"
	"github.com/okdaichi/netslice/internal/topology"
)

// Decision is the outcome of evaluating a candidate slice.
type Decision struct {
	Admit   bool
	Victims []string // union of victim names across every bottleneck edge, name-sorted
	Reason  string   // set when !Admit: names the culprit edge and the shortfall
}

// Evaluate runs the per-link algorithm of spec.md §4.5 over every edge of
// every path in paths (one path per flow of candidate, in flow order).
// It never mutates g or active; the caller reserves bandwidth (and
// deactivates the chosen victims) only after Evaluate returns
// Admit == true.
func Evaluate(g *topology.Graph, candidate catalog.Slice, paths [][]int, active *registry.Table) Decision {
	need := candidate.CapacityPct
	victimSet := make(map[string]struct{})

	for _, path := range paths {
		for i := 0; i+1 < len(path); i++ {
			from, to := path[i], path[i+1]

			link, err := g.Edge(from, to)
			if err != nil {
				// Unreachable in practice — the path planner only ever
				// returns edges that exist in g — but treated as a hard
				// refusal rather than a panic on a corrupt path.
				return Decision{Reason: fmt.Sprintf("path references unknown link %d->%d", from, to)}
			}

			available := link.Capacity - link.UsedBW
			if available >= need {
				continue
			}

			// A slice never preempts itself: excluded explicitly here,
			// even though the candidate has not yet been inserted into
			// the active table at evaluation time (spec.md §4.5
			// boundary case).
			onEdge := active.OnEdge(from, to, candidate.Name)

			preemptable := make([]registry.ActiveSlice, 0, len(onEdge))
			for _, v := range onEdge {
				if v.Priority < candidate.Priority {
					preemptable = append(preemptable, v)
				}
			}
			sort.Slice(preemptable, func(i, j int) bool {
				a, b := preemptable[i], preemptable[j]
				if a.Priority != b.Priority {
					return a.Priority < b.Priority
				}
				if a.ReservedBW != b.ReservedBW {
					return a.ReservedBW < b.ReservedBW
				}
				return a.Name < b.Name
			})

			freed := 0
			var chosen []string
			for _, v := range preemptable {
				if available+freed >= need {
					break
				}
				freed += v.ReservedBW
				chosen = append(chosen, v.Name)
			}

			if available+freed < need {
				return Decision{Reason: fmt.Sprintf(
					"insufficient capacity on link %d->%d: need %d, available %d even after preempting %d candidates",
					from, to, need, available+freed, len(preemptable))}
			}

			for _, name := range chosen {
				victimSet[name] = struct{}{}
			}
		}
	}

	victims := make([]string, 0, len(victimSet))
	for v := range victimSet {
		victims = append(victims, v)
	}
	sort.Strings(victims)
	return Decision{Admit: true, Victims: victims}
}
