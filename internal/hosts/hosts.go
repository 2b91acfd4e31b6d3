// Package hosts implements the Host Locator (C3): a static map from host
// name to attached switch and IP address.
package hosts

import (
	"fmt"
	"net"
)

// ErrNotFound is returned by SwitchOf/IPOf for an undeclared host.
type ErrNotFound struct {
	Host string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("host not found: %s", e.Host)
}

// Host is one declared host: a name, the switch it is attached to, and
// its IP address. Immutable after load.
type Host struct {
	Name    string
	IP      net.IP
	Switch int
}

// Locator is a pure lookup table, built once at startup.
type Locator struct {
	hosts map[string]Host
}

// NewLocator builds a Locator from a static list of hosts.
func NewLocator(hosts []Host) *Locator {
	m := make(map[string]Host, len(hosts))
	for _, h := range hosts {
		m[h.Name] = h
	}
	return &Locator{hosts: m}
}

// SwitchOf returns the switch id the named host is attached to.
func (l *Locator) SwitchOf(host string) (int, error) {
	h, ok := l.hosts[host]
	if !ok {
		return 0, &ErrNotFound{Host: host}
	}
	return h.Switch, nil
}

// IPOf returns the IP address of the named host.
func (l *Locator) IPOf(host string) (net.IP, error) {
	h, ok := l.hosts[host]
	if !ok {
		return nil, &ErrNotFound{Host: host}
	}
	return h.IP, nil
}

// Names returns every declared host name.
func (l *Locator) Names() []string {
	names := make([]string, 0, len(l.hosts))
	for n := range l.hosts {
		names = append(names, n)
	}
	return names
}
