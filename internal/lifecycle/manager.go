// Package lifecycle implements the Slice Lifecycle Manager (C9): it
// owns the active-slice table, serializes activate/deactivate calls
// behind one lock, and orchestrates the path planner, admission engine,
// rule programmer, and shaper for each transition (spec.md §4.7/§5).
package lifecycle

import (
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okdaichi/netslice/internal/admission"
	"github.com/okdaichi/netslice/internal/catalog"
	"github.com/okdaichi/netslice/internal/hosts"
	"github.com/okdaichi/netslice/internal/observability"
	"github.com/okdaichi/netslice/internal/registry"
	"github.com/okdaichi/netslice/internal/rules"
	"github.com/okdaichi/netslice/internal/topology"
)

// Manager owns the single exclusive lock covering both the topology
// graph's bandwidth counters and the active-slice registry, for the
// full duration of one Activate or Deactivate call — including
// recursive preemption teardown, which reenters under the same lock via
// deactivateLocked (spec.md §5/§9).
type Manager struct {
	Graph      *topology.Graph
	Catalog    *catalog.Catalog
	Hosts      *hosts.Locator
	Planner    topology.Planner
	Programmer *rules.Programmer
	Shaper     rules.Shaper
	Logger     *slog.Logger

	mu     sync.Mutex
	active *registry.Table
}

// NewManager wires the lifecycle manager's collaborators. active is the
// starting active-slice table (normally registry.NewTable(), an empty
// table at process start).
func NewManager(g *topology.Graph, cat *catalog.Catalog, locator *hosts.Locator, planner topology.Planner,
	programmer *rules.Programmer, shaper rules.Shaper, active *registry.Table, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if active == nil {
		active = registry.NewTable()
	}
	return &Manager{
		Graph:      g,
		Catalog:    cat,
		Hosts:      locator,
		Planner:    planner,
		Programmer: programmer,
		Shaper:     shaper,
		Logger:     logger,
		active:     active,
	}
}

type resolvedFlow struct {
	srcHost, dstHost string
	srcIP, dstIP     net.IP
	path             []int
}

// Activate admits and programs the named slice, per spec.md §4.7.
func (m *Manager) Activate(name string) (ok bool, msg string, err error) {
	callID := uuid.NewString()
	log := m.Logger.With("op", "activate", "slice", name, "call_id", callID)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := observability.NewRecorder(name)
	rec.Attempt()

	slice, cErr := m.Catalog.Get(name)
	if cErr != nil {
		log.Warn("activate: unknown slice")
		return false, cErr.Error(), errNotFound("%s", cErr.Error())
	}

	if _, exists := m.active.Get(name); exists {
		log.Info("activate: already active")
		return false, "slice already active", errAlreadyActive(name)
	}

	resolved, rErr := m.resolveFlows(slice)
	if rErr != nil {
		log.Warn("activate: flow resolution failed", "error", rErr)
		rec.Refused("resolve_failed")
		return false, rErr.Error(), rErr
	}

	paths := make([][]int, len(resolved))
	for i, rf := range resolved {
		paths[i] = rf.path
	}

	decision := admission.Evaluate(m.Graph, slice, paths, m.active)
	if !decision.Admit {
		log.Info("activate: admission refused", "reason", decision.Reason)
		rec.Refused("admission_refused")
		return false, decision.Reason, errAdmissionRefused(decision.Reason)
	}

	for _, victim := range decision.Victims {
		log.Info("activate: preempting victim", "victim", victim)
		if err := m.deactivateLocked(victim); err != nil {
			log.Warn("activate: victim teardown reported an error", "victim", victim, "error", err)
		}
	}
	rec.Preempted(len(decision.Victims))

	reservedEdges, installedSets, shapedIfaces, actErr := m.provision(slice, resolved)
	if actErr != nil {
		log.Error("activate: provisioning failed, rolling back", "error", actErr)
		m.rollback(slice.CapacityPct, reservedEdges, installedSets, shapedIfaces, name)
		rec.Refused("driver_error")
		return false, actErr.Error(), actErr
	}

	m.active.Put(registry.ActiveSlice{
		Name:             name,
		Paths:            paths,
		ReservedBW:       slice.CapacityPct,
		Priority:         slice.Priority,
		RuleSets:         installedSets,
		ShapedInterfaces: shapedIfaces,
	})
	observability.IncActiveSlices()
	rec.Admitted()
	m.recordUtilization()

	log.Info("activate: admitted", "victims", decision.Victims)
	return true, "activated", nil
}

// Deactivate tears down the named active slice, per spec.md §4.7.
func (m *Manager) Deactivate(name string) (ok bool, msg string, err error) {
	log := m.Logger.With("op", "deactivate", "slice", name, "call_id", uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active.Get(name); !exists {
		log.Info("deactivate: not active")
		return false, "slice not active", errNotActive(name)
	}

	if err := m.deactivateLocked(name); err != nil {
		log.Warn("deactivate: teardown reported an error", "error", err)
		return false, err.Error(), err
	}
	m.recordUtilization()
	log.Info("deactivate: torn down")
	return true, "deactivated", nil
}

// deactivateLocked tears down name's active record. The caller must
// already hold mu — used both by the public Deactivate and by Activate's
// preemption step (spec.md §9's recursive-deactivation design).
// Teardown is best-effort: a failure on one rule or shaper does not stop
// the rest from being attempted, matching the Programmer's own
// best-effort Teardown contract.
func (m *Manager) deactivateLocked(name string) error {
	victim, exists := m.active.Get(name)
	if !exists {
		return errNotActive(name)
	}

	for _, path := range victim.Paths {
		for i := 0; i+1 < len(path); i++ {
			if over := m.Graph.Release(path[i], path[i+1], victim.ReservedBW); over > 0 {
				m.Logger.Warn("deactivate: released more bandwidth than was reserved",
					"slice", name, "edge_from", path[i], "edge_to", path[i+1], "excess", over)
			}
		}
	}

	for _, set := range victim.RuleSets {
		if err := m.Programmer.Teardown(set); err != nil {
			m.Logger.Warn("deactivate: rule teardown error", "slice", name, "error", err)
		}
	}

	for _, ifname := range victim.ShapedInterfaces {
		if err := m.Shaper.Destroy(name, ifname); err != nil {
			m.Logger.Warn("deactivate: shaper teardown error", "slice", name, "ifname", ifname, "error", err)
		}
	}

	m.active.Delete(name)
	observability.DecActiveSlices()
	return nil
}

// resolveFlows resolves every flow of slice to switch ids and a planned
// path, failing fast on the first unresolvable host or unroutable flow.
func (m *Manager) resolveFlows(slice catalog.Slice) ([]resolvedFlow, error) {
	out := make([]resolvedFlow, 0, len(slice.Flows))
	for _, f := range slice.Flows {
		srcSw, err := m.Hosts.SwitchOf(f.Src)
		if err != nil {
			return nil, errNotFound("%s", err.Error())
		}
		dstSw, err := m.Hosts.SwitchOf(f.Dst)
		if err != nil {
			return nil, errNotFound("%s", err.Error())
		}
		srcIP, err := m.Hosts.IPOf(f.Src)
		if err != nil {
			return nil, errNotFound("%s", err.Error())
		}
		dstIP, err := m.Hosts.IPOf(f.Dst)
		if err != nil {
			return nil, errNotFound("%s", err.Error())
		}

		path, err := m.Planner.Path(m.Graph, srcSw, dstSw)
		if err != nil {
			return nil, errNoPath("no path from %s (sw%d) to %s (sw%d): %v", f.Src, srcSw, f.Dst, dstSw, err)
		}

		out = append(out, resolvedFlow{srcHost: f.Src, dstHost: f.Dst, srcIP: srcIP, dstIP: dstIP, path: path})
	}
	return out, nil
}

// provision reserves bandwidth, programs rules, and creates shapers for
// every resolved flow of slice, in that order per flow. On the first
// failure it returns everything committed so far so the caller can roll
// it back; it never commits the active-slice record itself.
func (m *Manager) provision(slice catalog.Slice, resolved []resolvedFlow) (reservedEdges [][2]int, installedSets []rules.RuleSet, shapedIfaces []string, err error) {
	for _, rf := range resolved {
		for i := 0; i+1 < len(rf.path); i++ {
			u, v := rf.path[i], rf.path[i+1]
			if rErr := m.Graph.Reserve(u, v, slice.CapacityPct); rErr != nil {
				return reservedEdges, installedSets, shapedIfaces, errDriver(rErr, "reserve bandwidth on %d->%d", u, v)
			}
			reservedEdges = append(reservedEdges, [2]int{u, v})
		}

		set, iErr := m.Programmer.Install(rf.path, rf.srcIP, rf.dstIP, func(u, v int) (int, error) {
			l, err := m.Graph.Edge(u, v)
			if err != nil {
				return 0, err
			}
			return l.Port, nil
		})
		if iErr != nil {
			return reservedEdges, installedSets, shapedIfaces, errDriver(iErr, "install rules for flow %s->%s", rf.srcHost, rf.dstHost)
		}
		installedSets = append(installedSets, set)

		firstHopPort, pErr := m.egressPort(rf.path[0], rf.path[1])
		if pErr != nil {
			return reservedEdges, installedSets, shapedIfaces, errDriver(pErr, "resolve egress port for flow %s->%s", rf.srcHost, rf.dstHost)
		}
		ifname := rules.IngressInterfaceName(rf.path[0], firstHopPort)

		if sErr := m.Shaper.Create(slice.Name, slice.CapacityPct, rf.srcIP, rf.dstIP, ifname); sErr != nil {
			return reservedEdges, installedSets, shapedIfaces, errDriver(sErr, "create shaper on %s", ifname)
		}
		shapedIfaces = append(shapedIfaces, ifname)
	}
	return reservedEdges, installedSets, shapedIfaces, nil
}

func (m *Manager) egressPort(u, v int) (int, error) {
	l, err := m.Graph.Edge(u, v)
	if err != nil {
		return 0, err
	}
	return l.Port, nil
}

// rollback undoes everything provision committed for a failed
// activation of sliceName. Preempted victims are never reactivated here
// — spec.md §9 treats that as an open question resolved in the
// direction of "victims stay down" (see DESIGN.md).
func (m *Manager) rollback(bw int, reservedEdges [][2]int, installedSets []rules.RuleSet, shapedIfaces []string, sliceName string) {
	for _, e := range reservedEdges {
		if over := m.Graph.Release(e[0], e[1], bw); over > 0 {
			m.Logger.Warn("rollback: released more bandwidth than was reserved",
				"slice", sliceName, "edge_from", e[0], "edge_to", e[1], "excess", over)
		}
	}
	for _, set := range installedSets {
		if err := m.Programmer.Teardown(set); err != nil {
			m.Logger.Warn("rollback: rule teardown error", "slice", sliceName, "error", err)
		}
	}
	for _, ifname := range shapedIfaces {
		if err := m.Shaper.Destroy(sliceName, ifname); err != nil {
			m.Logger.Warn("rollback: shaper teardown error", "slice", sliceName, "ifname", ifname, "error", err)
		}
	}
}

// Snapshot is the read model returned by Status.
type Snapshot struct {
	Slices []SliceStatus
	Links  []topology.LinkUtilization
}

// SliceStatus is one active slice's status row.
type SliceStatus struct {
	Name       string
	Paths      [][]int
	ReservedBW int
	Priority   int
}

// Status returns a point-in-time snapshot of every active slice and
// global link utilization. It takes the same lock as Activate/Deactivate
// (see DESIGN.md): status reads are cheap local copies, not external I/O,
// so sharing the single mutex is simpler than a separate RWMutex and
// never holds the lock for long.
func (m *Manager) Status() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := m.active.Names()
	slices := make([]SliceStatus, 0, len(names))
	for _, n := range names {
		a, _ := m.active.Get(n)
		slices = append(slices, SliceStatus{Name: a.Name, Paths: a.Paths, ReservedBW: a.ReservedBW, Priority: a.Priority})
	}
	return Snapshot{Slices: slices, Links: m.Graph.Utilization()}
}

// recordUtilization pushes the current per-edge utilization to the
// observability gauge. Caller must hold mu.
func (m *Manager) recordUtilization() {
	for _, u := range m.Graph.Utilization() {
		pct := 0.0
		if u.Capacity > 0 {
			pct = float64(u.UsedBW) / float64(u.Capacity) * 100
		}
		observability.SetLinkUtilization(fmt.Sprintf("%d", u.From), fmt.Sprintf("%d", u.To), pct)
	}
}

// AuditInvariants re-checks I1/I2 of spec.md §3 against the current
// state and returns a human-readable list of violations (empty when
// healthy). Used by StartAuditor and by tests.
func (m *Manager) AuditInvariants() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var problems []string
	want := make(map[[2]int]int)
	for _, name := range m.active.Names() {
		a, _ := m.active.Get(name)
		// Count once per path traversal, the way provision reserves and
		// deactivateLocked releases: two flows over the same edge hold two
		// reservations on it.
		for _, path := range a.Paths {
			for i := 0; i+1 < len(path); i++ {
				want[[2]int{path[i], path[i+1]}] += a.ReservedBW
			}
		}
	}

	for _, u := range m.Graph.Utilization() {
		if u.UsedBW < 0 || u.UsedBW > u.Capacity {
			problems = append(problems, fmt.Sprintf("I1 violated on %d->%d: usedBw=%d capacity=%d", u.From, u.To, u.UsedBW, u.Capacity))
		}
		if want[[2]int{u.From, u.To}] != u.UsedBW {
			problems = append(problems, fmt.Sprintf("I2 violated on %d->%d: usedBw=%d, sum of active reservations=%d",
				u.From, u.To, u.UsedBW, want[[2]int{u.From, u.To}]))
		}
	}
	sort.Strings(problems)
	return problems
}
