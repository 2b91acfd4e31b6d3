package topology

import "testing"

func TestHopPlanner_Direct(t *testing.T) {
	g := testGraph()
	p := NewHopPlanner()

	path, err := p.Path(g, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2}
	assertPath(t, path, want)
}

func TestHopPlanner_MultiHop(t *testing.T) {
	g := testGraph()
	p := NewHopPlanner()

	path, err := p.Path(g, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPath(t, path, []int{1, 2, 3})
}

func TestHopPlanner_SameSwitch(t *testing.T) {
	g := testGraph()
	p := NewHopPlanner()

	path, err := p.Path(g, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPath(t, path, []int{2})
}

func TestHopPlanner_NoPath(t *testing.T) {
	g := NewGraph([]int{1, 2}, nil)
	p := NewHopPlanner()

	if _, err := p.Path(g, 1, 2); err != ErrNoPath {
		t.Fatalf("err = %v, want ErrNoPath", err)
	}
}

func TestHopPlanner_Deterministic(t *testing.T) {
	g := testGraph()
	p := NewHopPlanner()

	first, err := p.Path(g, 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := p.Path(g, 1, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertPath(t, again, first)
	}
}

func assertPath(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("path = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path = %v, want %v", got, want)
		}
	}
}
