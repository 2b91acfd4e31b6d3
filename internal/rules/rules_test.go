package rules

import (
	"net"
	"testing"
)

func straightEgress(u, v int) (int, error) {
	return v, nil // toy topology: egress port toward v is just v's id
}

func TestProgrammer_InstallsForwardAndIsolationBothDirections(t *testing.T) {
	driver := NewRecordingDriver()
	p := NewProgrammer(driver)

	srcIP := net.ParseIP("10.0.0.1")
	dstIP := net.ParseIP("10.0.0.2")

	set, err := p.Install([]int{1, 2, 3}, srcIP, dstIP, straightEgress)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	// forward: s1,s2 (2 forward rules) + isolation at s1
	// reverse: s3,s2 (2 forward rules) + isolation at s3
	if len(set.Rules) != 6 {
		t.Fatalf("got %d rules, want 6: %+v", len(set.Rules), set.Rules)
	}

	if !driver.HasInstalled(Rule{Switch: 1, Priority: PriorityForward, Match: Match{EthType: EthTypeIPv4, IPSrc: srcIP, IPDst: dstIP}, Output: 2}) {
		t.Fatal("expected forward rule s1->s2 matching src->dst")
	}
	if !driver.HasInstalled(Rule{Switch: 1, Priority: PriorityIsolation, Match: Match{EthType: EthTypeIPv4, IPSrc: srcIP}, Drop: true}) {
		t.Fatal("expected isolation drop at s1 for ipSrc=A")
	}
	if !driver.HasInstalled(Rule{Switch: 3, Priority: PriorityIsolation, Match: Match{EthType: EthTypeIPv4, IPSrc: dstIP}, Drop: true}) {
		t.Fatal("expected isolation drop at s3 (reverse path head) for ipSrc=B")
	}
	if !driver.HasInstalled(Rule{Switch: 3, Priority: PriorityForward, Match: Match{EthType: EthTypeIPv4, IPSrc: dstIP, IPDst: srcIP}, Output: 2}) {
		t.Fatal("expected reverse forward rule s3->s2 matching dst->src")
	}
}

func TestProgrammer_TeardownRemovesExactlyInstalledRules(t *testing.T) {
	driver := NewRecordingDriver()
	p := NewProgrammer(driver)

	srcIP := net.ParseIP("10.0.0.1")
	dstIP := net.ParseIP("10.0.0.2")

	set, err := p.Install([]int{1, 2}, srcIP, dstIP, straightEgress)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	if err := p.Teardown(set); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	for _, r := range set.Rules {
		if driver.HasInstalled(r) {
			t.Fatalf("rule %+v still reported installed after teardown", r)
		}
	}
	if len(driver.Removed) != len(set.Rules) {
		t.Fatalf("removed %d rules, want %d", len(driver.Removed), len(set.Rules))
	}
}

func TestProgrammer_RejectsSingleSwitchPath(t *testing.T) {
	p := NewProgrammer(NewRecordingDriver())
	if _, err := p.Install([]int{1}, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), straightEgress); err == nil {
		t.Fatal("expected an error for a path with fewer than two switches")
	}
}

func TestIngressInterfaceName_Deterministic(t *testing.T) {
	got := IngressInterfaceName(1, 2)
	want := "eth-sw1-p2"
	if got != want {
		t.Fatalf("IngressInterfaceName(1,2) = %q, want %q", got, want)
	}
}

func TestRecordingShaper_CreateDestroy(t *testing.T) {
	s := NewRecordingShaper()
	if err := s.Create("gold", 40, net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2"), "eth-sw1-p2"); err != nil {
		t.Fatal(err)
	}
	if len(s.Created) != 1 || s.Created[0] != "eth-sw1-p2" {
		t.Fatalf("Created = %v", s.Created)
	}
	if err := s.Destroy("gold", "eth-sw1-p2"); err != nil {
		t.Fatal(err)
	}
	if len(s.Destroyed) != 1 {
		t.Fatalf("Destroyed = %v", s.Destroyed)
	}
}
