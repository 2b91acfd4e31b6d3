package rules

import (
	"fmt"
	"net"
	"os/exec"
)

// Shaper is the external traffic-shaping contract of spec.md §6: create
// a per-slice rate limit on an ingress interface, and destroy it again
// on deactivation.
type Shaper interface {
	Create(sliceName string, capacityPct int, srcIP, dstIP net.IP, ifname string) error
	Destroy(sliceName string, ifname string) error
}

// ExecShaper runs a configured external executable for every
// create/destroy call and waits for it to exit. A failing run is
// returned as an error; internal/lifecycle treats a Create error as a
// driver failure and rolls the activation back.
type ExecShaper struct {
	Path string // path to the shaper executable
}

// NewExecShaper returns a Shaper that shells out to path.
func NewExecShaper(path string) *ExecShaper {
	return &ExecShaper{Path: path}
}

// Create invokes `<path> create <sliceName> <capacityPct> <srcIp> <dstIp> <ifname>`.
func (s *ExecShaper) Create(sliceName string, capacityPct int, srcIP, dstIP net.IP, ifname string) error {
	cmd := exec.Command(s.Path, "create", sliceName, fmt.Sprintf("%d", capacityPct), srcIP.String(), dstIP.String(), ifname)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rules: shaper create failed: %w (output: %s)", err, out)
	}
	return nil
}

// Destroy invokes `<path> destroy <sliceName> <ifname>`.
func (s *ExecShaper) Destroy(sliceName string, ifname string) error {
	cmd := exec.Command(s.Path, "destroy", sliceName, ifname)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rules: shaper destroy failed: %w (output: %s)", err, out)
	}
	return nil
}
