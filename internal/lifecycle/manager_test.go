package lifecycle

import (
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/okdaichi/netslice/internal/catalog"
	"github.com/okdaichi/netslice/internal/hosts"
	"github.com/okdaichi/netslice/internal/registry"
	"github.com/okdaichi/netslice/internal/rules"
	"github.com/okdaichi/netslice/internal/topology"
)

// testTopology builds the scenario topology of spec.md §8: s1-s2, s1-s4,
// s2-s3, s2-s5, bidirectional, capacity 100 on every edge.
func testTopology() *topology.Graph {
	ids := []int{1, 2, 3, 4, 5}
	var edges []topology.EdgeSpec
	for _, e := range [][2]int{{1, 2}, {1, 4}, {2, 3}, {2, 5}} {
		edges = append(edges,
			topology.EdgeSpec{From: e[0], To: e[1], Capacity: 100, Port: e[1]},
			topology.EdgeSpec{From: e[1], To: e[0], Capacity: 100, Port: e[0]},
		)
	}
	return topology.NewGraph(ids, edges)
}

func testHosts() *hosts.Locator {
	return hosts.NewLocator([]hosts.Host{
		{Name: "h1", IP: net.ParseIP("10.0.0.1"), Switch: 1},
		{Name: "h2", IP: net.ParseIP("10.0.0.2"), Switch: 1},
		{Name: "h3", IP: net.ParseIP("10.0.0.3"), Switch: 3},
		{Name: "h4", IP: net.ParseIP("10.0.0.4"), Switch: 5},
	})
}

func newTestManager(t *testing.T, slices []catalog.Slice) (*Manager, *rules.RecordingDriver, *rules.RecordingShaper) {
	t.Helper()
	driver := rules.NewRecordingDriver()
	shaper := rules.NewRecordingShaper()
	m := NewManager(
		testTopology(),
		catalog.New(slices),
		testHosts(),
		topology.NewHopPlanner(),
		rules.NewProgrammer(driver),
		shaper,
		registry.NewTable(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return m, driver, shaper
}

func TestActivate_S1_SimpleActivation(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
	})

	ok, msg, err := m.Activate("A")
	if !ok || err != nil {
		t.Fatalf("Activate(A) = %v, %v, %v", ok, msg, err)
	}

	for _, pair := range [][2]int{{1, 2}, {2, 1}, {2, 3}, {3, 2}} {
		l, err := m.Graph.Edge(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if l.UsedBW != 60 {
			t.Fatalf("edge %d->%d usedBw = %d, want 60", pair[0], pair[1], l.UsedBW)
		}
	}
}

func TestActivate_S2_RefusedNoLowerPriorityVictim(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
		{Name: "B", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 50, Priority: 1},
	})

	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}

	ok, _, err := m.Activate("B")
	if ok || err == nil {
		t.Fatal("expected Activate(B) to be refused")
	}
	lerr, isLerr := err.(*Error)
	if !isLerr || lerr.Kind != KindAdmissionRefused {
		t.Fatalf("expected AdmissionRefused, got %v", err)
	}

	l, _ := m.Graph.Edge(1, 2)
	if l.UsedBW != 60 {
		t.Fatalf("state changed after refused activation: usedBw=%d, want 60", l.UsedBW)
	}
}

func TestActivate_S3_PreemptsLowerPriority(t *testing.T) {
	m, driver, shaper := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
		{Name: "B", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 50, Priority: 2},
	})

	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}
	ok, _, err := m.Activate("B")
	if !ok || err != nil {
		t.Fatalf("Activate(B) should succeed via preemption: %v", err)
	}

	if _, exists := m.active.Get("A"); exists {
		t.Fatal("expected A to be deactivated by preemption")
	}

	l, _ := m.Graph.Edge(1, 2)
	if l.UsedBW != 50 {
		t.Fatalf("usedBw(1->2) = %d, want 50", l.UsedBW)
	}

	if len(driver.Installed) == 0 {
		t.Fatal("expected B's rules to have been installed")
	}
	if len(shaper.Destroyed) == 0 {
		t.Fatal("expected A's shaper to have been destroyed on preemption")
	}
}

func TestActivate_S5_UnknownHostRejected(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "C", Flows: []catalog.Flow{{Src: "h1", Dst: "hX"}}, CapacityPct: 10, Priority: 1},
	})

	ok, _, err := m.Activate("C")
	if ok || err == nil {
		t.Fatal("expected Activate(C) to fail for an unknown host")
	}
	lerr, isLerr := err.(*Error)
	if !isLerr || lerr.Kind != KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestActivate_S6_SharedEdgeAccumulates(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{
			Name: "D",
			Flows: []catalog.Flow{
				{Src: "h1", Dst: "h3"},
				{Src: "h2", Dst: "h3"},
			},
			CapacityPct: 30,
			Priority:    1,
		},
	})

	if ok, _, err := m.Activate("D"); !ok || err != nil {
		t.Fatalf("Activate(D) failed: %v", err)
	}

	l, _ := m.Graph.Edge(1, 2)
	if l.UsedBW != 60 {
		t.Fatalf("usedBw(1->2) = %d, want 60 (two independent 30%% reservations)", l.UsedBW)
	}
}

func TestDeactivate_S4_IdempotenceAndReleaseToZero(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
	})

	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}

	ok, _, err := m.Deactivate("A")
	if !ok || err != nil {
		t.Fatalf("Deactivate(A) failed: %v", err)
	}
	for _, pair := range [][2]int{{1, 2}, {2, 1}, {2, 3}, {3, 2}} {
		l, _ := m.Graph.Edge(pair[0], pair[1])
		if l.UsedBW != 0 {
			t.Fatalf("edge %d->%d usedBw = %d after deactivate, want 0", pair[0], pair[1], l.UsedBW)
		}
	}

	ok, _, err = m.Deactivate("A")
	if ok || err == nil {
		t.Fatal("expected second Deactivate(A) to report NotActive")
	}
	lerr, isLerr := err.(*Error)
	if !isLerr || lerr.Kind != KindNotActive {
		t.Fatalf("expected NotActive, got %v", err)
	}
}

func TestActivate_AlreadyActive(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 10, Priority: 1},
	})
	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}
	ok, _, err := m.Activate("A")
	if ok || err == nil {
		t.Fatal("expected second Activate(A) to report AlreadyActive")
	}
	lerr, isLerr := err.(*Error)
	if !isLerr || lerr.Kind != KindAlreadyActive {
		t.Fatalf("expected AlreadyActive, got %v", err)
	}
}

func TestAuditInvariants_CleanAfterActivation(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
	})
	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}
	if problems := m.AuditInvariants(); len(problems) != 0 {
		t.Fatalf("expected no invariant violations, got %v", problems)
	}
}

func TestActivate_T3_RollsBackOnSecondFlowShaperFailure(t *testing.T) {
	m, driver, shaper := newTestManager(t, []catalog.Slice{
		{
			Name: "D",
			Flows: []catalog.Flow{
				{Src: "h1", Dst: "h3"},
				{Src: "h2", Dst: "h3"},
			},
			CapacityPct: 30,
			Priority:    1,
		},
	})
	// First flow's shaper create succeeds; the second flow's fails, after
	// bandwidth and rules for both flows have already been committed by
	// provision (spec.md §8's T3 rollback scenario).
	shaper.FailAfter = 2

	ok, _, err := m.Activate("D")
	if ok || err == nil {
		t.Fatal("expected Activate(D) to fail when the second flow's shaper create fails")
	}
	lerr, isLerr := err.(*Error)
	if !isLerr || lerr.Kind != KindDriverError {
		t.Fatalf("expected DriverError, got %v", err)
	}

	if _, exists := m.active.Get("D"); exists {
		t.Fatal("expected D to be absent from the active table after rollback")
	}

	for _, pair := range [][2]int{{1, 2}, {2, 1}, {2, 3}, {3, 2}} {
		l, lErr := m.Graph.Edge(pair[0], pair[1])
		if lErr != nil {
			t.Fatal(lErr)
		}
		if l.UsedBW != 0 {
			t.Fatalf("edge %d->%d usedBw = %d after rollback, want 0", pair[0], pair[1], l.UsedBW)
		}
	}

	if len(driver.Installed) == 0 {
		t.Fatal("expected provision to have installed at least the first flow's rules before failing")
	}
	for _, r := range driver.Installed {
		if driver.HasInstalled(r) {
			t.Fatalf("rule %+v still reports installed after rollback teardown", r)
		}
	}
	if len(driver.Removed) != len(driver.Installed) {
		t.Fatalf("expected every installed rule to be torn down by rollback, installed=%d removed=%d",
			len(driver.Installed), len(driver.Removed))
	}

	if len(shaper.Created) != 1 {
		t.Fatalf("expected exactly one shaper to have been created before the injected failure, got %d", len(shaper.Created))
	}
	if len(shaper.Destroyed) != 1 || shaper.Destroyed[0] != shaper.Created[0] {
		t.Fatalf("expected rollback to destroy the one shaper it created, created=%v destroyed=%v",
			shaper.Created, shaper.Destroyed)
	}

	if problems := m.AuditInvariants(); len(problems) != 0 {
		t.Fatalf("expected no invariant violations after rollback, got %v", problems)
	}
}

func TestStatus_ReflectsActiveSlices(t *testing.T) {
	m, _, _ := newTestManager(t, []catalog.Slice{
		{Name: "A", Flows: []catalog.Flow{{Src: "h1", Dst: "h3"}}, CapacityPct: 60, Priority: 1},
	})
	if ok, _, err := m.Activate("A"); !ok || err != nil {
		t.Fatalf("Activate(A) failed: %v", err)
	}

	snap := m.Status()
	if len(snap.Slices) != 1 || snap.Slices[0].Name != "A" || snap.Slices[0].ReservedBW != 60 {
		t.Fatalf("Status() = %+v", snap)
	}
	if len(snap.Links) == 0 {
		t.Fatal("expected non-empty link utilization snapshot")
	}
}
