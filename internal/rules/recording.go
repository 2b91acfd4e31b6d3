package rules

import (
	"fmt"
	"net"
)

// RecordingDriver is an in-memory SwitchDriver stub for tests: it
// records every installed rule and lets tests assert on removal, the
// "production talks to a real dataplane, tests use a recording stub"
// split spec.md §9 calls for.
//
// FailAfter, when non-zero, makes the FailAfter'th call to InstallRule
// (1-indexed) return an error instead of recording the rule, so tests
// can exercise Manager.rollback without a real dataplane.
type RecordingDriver struct {
	Installed []Rule
	Removed   []Rule

	FailAfter int
	installs  int
}

// NewRecordingDriver returns an empty RecordingDriver.
func NewRecordingDriver() *RecordingDriver {
	return &RecordingDriver{}
}

func (d *RecordingDriver) InstallRule(r Rule) error {
	d.installs++
	if d.FailAfter != 0 && d.installs == d.FailAfter {
		return fmt.Errorf("rules: recording driver: injected failure on install #%d", d.installs)
	}
	d.Installed = append(d.Installed, r)
	return nil
}

func (d *RecordingDriver) RemoveRule(switchID, priority int, m Match) error {
	d.Removed = append(d.Removed, Rule{Switch: switchID, Priority: priority, Match: m})
	return nil
}

// HasInstalled reports whether a rule exactly matching want is currently
// installed and not yet removed.
func (d *RecordingDriver) HasInstalled(want Rule) bool {
	for _, r := range d.Installed {
		if ruleEqual(r, want) && !d.wasRemoved(r) {
			return true
		}
	}
	return false
}

func (d *RecordingDriver) wasRemoved(r Rule) bool {
	for _, rm := range d.Removed {
		if rm.Switch == r.Switch && rm.Priority == r.Priority && matchEqual(rm.Match, r.Match) {
			return true
		}
	}
	return false
}

func ruleEqual(a, b Rule) bool {
	return a.Switch == b.Switch && a.Priority == b.Priority && a.Output == b.Output &&
		a.Drop == b.Drop && matchEqual(a.Match, b.Match)
}

func matchEqual(a, b Match) bool {
	return a.EthType == b.EthType && a.InPort == b.InPort && ipEqual(a.IPSrc, b.IPSrc) && ipEqual(a.IPDst, b.IPDst)
}

func ipEqual(a, b net.IP) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// RecordingShaper is an in-memory Shaper stub for tests.
//
// FailAfter, when non-zero, makes the FailAfter'th call to Create
// (1-indexed) return an error instead of recording the interface, the
// same injection shape as RecordingDriver.FailAfter.
type RecordingShaper struct {
	Created   []string // ifnames created
	Destroyed []string

	FailAfter int
	creates   int
}

// NewRecordingShaper returns an empty RecordingShaper.
func NewRecordingShaper() *RecordingShaper {
	return &RecordingShaper{}
}

func (s *RecordingShaper) Create(sliceName string, capacityPct int, srcIP, dstIP net.IP, ifname string) error {
	s.creates++
	if s.FailAfter != 0 && s.creates == s.FailAfter {
		return fmt.Errorf("rules: recording shaper: injected failure on create #%d", s.creates)
	}
	s.Created = append(s.Created, ifname)
	return nil
}

func (s *RecordingShaper) Destroy(sliceName string, ifname string) error {
	s.Destroyed = append(s.Destroyed, ifname)
	return nil
}
