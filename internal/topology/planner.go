package topology

import (
	"container/heap"
	"errors"
)

// ErrNoPath is returned when no route exists between two switches.
var ErrNoPath = errors.New("no path between switches")

// Planner computes a path for a flow over a Graph snapshot (C4).
// Implementations are swappable, the way the teacher's Router interface
// is swappable — this repo ships exactly one, hopPlanner.
type Planner interface {
	// Path returns the ordered switch ids from src to dst. If
	// src == dst, it returns a one-element path. Ties are broken
	// deterministically so repeated calls against an unchanged graph
	// always return the same path.
	Path(g *Graph, src, dst int) ([]int, error)
}

// NewHopPlanner returns the default Planner: shortest path by hop count.
func NewHopPlanner() Planner { return hopPlanner{} }

type hopPlanner struct{}

// Path implements Planner using a Dijkstra relaxation with uniform edge
// weight 1 (hop count). Determinism comes from always relaxing a node's
// neighbors in ascending switch-id order (Graph.Neighbors already
// returns them sorted) and from container/heap popping equal-cost entries
// in an order fixed by the sequence of heap operations — so the same
// graph always yields the same path. The queue compares cost only, so
// among equal-length paths the one returned is not guaranteed to be the
// lexicographically smallest.
func (hopPlanner) Path(g *Graph, src, dst int) ([]int, error) {
	if !g.HasSwitch(src) {
		return nil, &ErrUnknownSwitch{ID: src}
	}
	if !g.HasSwitch(dst) {
		return nil, &ErrUnknownSwitch{ID: dst}
	}
	if src == dst {
		return []int{src}, nil
	}

	const inf = int(1) << 30
	dist := make(map[int]int, len(g.switches))
	prev := make(map[int]int, len(g.switches))
	for id := range g.switches {
		dist[id] = inf
	}
	dist[src] = 0

	pq := &pqueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{id: src, dist: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		u := item.id
		if item.dist > dist[u] {
			continue // stale entry
		}
		if u == dst {
			break
		}
		for _, v := range g.Neighbors(u) {
			alt := dist[u] + 1
			if alt < dist[v] {
				dist[v] = alt
				prev[v] = u
				heap.Push(pq, &pqItem{id: v, dist: alt})
			}
		}
	}

	if dist[dst] >= inf {
		return nil, ErrNoPath
	}

	path := []int{dst}
	for at := dst; at != src; {
		p, ok := prev[at]
		if !ok {
			return nil, ErrNoPath
		}
		path = append(path, p)
		at = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

type pqItem struct {
	id, dist, index int
}

type pqueue []*pqItem

func (q pqueue) Len() int            { return len(q) }
func (q pqueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pqueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *pqueue) Push(x interface{}) { item := x.(*pqItem); item.index = len(*q); *q = append(*q, item) }
func (q *pqueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
