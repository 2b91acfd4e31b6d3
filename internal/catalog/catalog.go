// Package catalog implements the Slice Catalog (C2): an immutable
// registry of declared slices, loaded once at startup.
package catalog

import "fmt"

// ErrNotFound is returned by Get for an undeclared slice name.
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("slice not found in catalog: %s", e.Name)
}

// Flow is one (srcHost, dstHost) pair. A slice is defined by one or more
// flows.
type Flow struct {
	Src, Dst string
}

// Slice is an immutable declared slice definition.
type Slice struct {
	Name        string
	Flows       []Flow
	CapacityPct int // bandwidth each flow reserves on every link it traverses
	Priority    int // higher wins admission battles; default 0
}

// Catalog is the immutable set of declared slices.
type Catalog struct {
	slices map[string]Slice
	order  []string
}

// New builds a Catalog from a list of slice definitions. Duplicate
// names are rejected by the caller (internal/config), not here — New
// assumes validated input, the way the teacher's topology.newGraph
// assumes a validated declaration.
func New(slices []Slice) *Catalog {
	c := &Catalog{slices: make(map[string]Slice, len(slices)), order: make([]string, 0, len(slices))}
	for _, s := range slices {
		c.slices[s.Name] = s
		c.order = append(c.order, s.Name)
	}
	return c
}

// Get returns the named slice's definition.
func (c *Catalog) Get(name string) (Slice, error) {
	s, ok := c.slices[name]
	if !ok {
		return Slice{}, &ErrNotFound{Name: name}
	}
	return s, nil
}

// Names returns every declared slice name, in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
