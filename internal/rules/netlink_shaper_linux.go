//go:build linux
// +build linux

package rules

import (
	"fmt"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
)

// NetlinkShaper rate-limits a slice in-process via an HTB root qdisc
// plus one child class per slice on the named interface, an alternative
// to shelling out through ExecShaper for deployments that would rather
// not spawn a process per activation. Grounded on the HTB qdisc/class
// construction of grimm-is-flywall's qos.Manager.ApplyConfig.
type NetlinkShaper struct {
	mu      sync.Mutex
	classID map[string]uint16 // sliceName+ifname -> htb class minor id
	next    uint16
}

// NewNetlinkShaper returns an empty NetlinkShaper.
func NewNetlinkShaper() (Shaper, error) {
	return &NetlinkShaper{classID: make(map[string]uint16), next: 10}, nil
}

// Create ensures a root HTB qdisc exists on ifname and adds a class
// capped at capacityPct percent of a notional 1000Mbit link, mirroring
// the percent-of-link-capacity unit the rest of the controller uses.
func (s *NetlinkShaper) Create(sliceName string, capacityPct int, srcIP, dstIP net.IP, ifname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("rules: interface %s not found: %w", ifname, err)
	}

	if err := s.ensureRootQdisc(link); err != nil {
		return err
	}

	key := classKey(sliceName, ifname)
	minor, ok := s.classID[key]
	if !ok {
		minor = s.next
		s.next++
		s.classID[key] = minor
	}

	rate := uint64(capacityPct) * 1250000 // percent-of-1000Mbit link, in bytes/s
	class := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    netlink.MakeHandle(1, 1),
		Handle:    netlink.MakeHandle(1, minor),
	}, netlink.HtbClassAttrs{
		Rate:    rate,
		Ceil:    rate,
		Buffer:  1514,
		Cbuffer: 1514,
	})
	if err := netlink.ClassAdd(class); err != nil {
		return fmt.Errorf("rules: add htb class for slice %s: %w", sliceName, err)
	}
	return nil
}

// Destroy removes the HTB class created for sliceName on ifname.
func (s *NetlinkShaper) Destroy(sliceName string, ifname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := classKey(sliceName, ifname)
	minor, ok := s.classID[key]
	if !ok {
		return nil
	}
	delete(s.classID, key)

	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return fmt.Errorf("rules: interface %s not found: %w", ifname, err)
	}
	class := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    netlink.MakeHandle(1, 1),
		Handle:    netlink.MakeHandle(1, minor),
	}, netlink.HtbClassAttrs{})
	return netlink.ClassDel(class)
}

func (s *NetlinkShaper) ensureRootQdisc(link netlink.Link) error {
	qdiscs, err := netlink.QdiscList(link)
	if err != nil {
		return fmt.Errorf("rules: list qdiscs: %w", err)
	}
	for _, q := range qdiscs {
		if q.Attrs().Parent == netlink.HANDLE_ROOT {
			if _, ok := q.(*netlink.Htb); ok {
				return nil
			}
		}
	}
	root := netlink.NewHtb(netlink.QdiscAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    netlink.HANDLE_ROOT,
		Handle:    netlink.MakeHandle(1, 0),
	})
	if err := netlink.QdiscAdd(root); err != nil {
		return fmt.Errorf("rules: add root htb qdisc: %w", err)
	}
	rootClass := netlink.NewHtbClass(netlink.ClassAttrs{
		LinkIndex: link.Attrs().Index,
		Parent:    netlink.MakeHandle(1, 0),
		Handle:    netlink.MakeHandle(1, 1),
	}, netlink.HtbClassAttrs{
		Rate:    125000000, // 1000Mbit notional root, in bytes/s
		Ceil:    125000000,
		Buffer:  1514,
		Cbuffer: 1514,
	})
	if err := netlink.ClassAdd(rootClass); err != nil {
		return fmt.Errorf("rules: add root htb class: %w", err)
	}
	return nil
}

func classKey(sliceName, ifname string) string {
	return sliceName + "@" + ifname
}
