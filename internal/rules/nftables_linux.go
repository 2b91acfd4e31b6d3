//go:build linux
// +build linux

package rules

import (
	"fmt"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// NFTablesConn is the subset of *nftables.Conn the driver needs,
// extracted so tests can inject a fake in place of a real netlink
// socket — the same injection shape as grimm-is-flywall's firewall
// manager (internal/firewall.NFTablesConn).
type NFTablesConn interface {
	AddTable(t *nftables.Table) *nftables.Table
	AddChain(c *nftables.Chain) *nftables.Chain
	AddRule(r *nftables.Rule) *nftables.Rule
	DelRule(r *nftables.Rule) error
	Flush() error
}

type realNFTablesConn struct {
	conn *nftables.Conn
}

// NewRealNFTablesConn wraps a live *nftables.Conn as an NFTablesConn.
func NewRealNFTablesConn(conn *nftables.Conn) NFTablesConn {
	return &realNFTablesConn{conn: conn}
}

func (r *realNFTablesConn) AddTable(t *nftables.Table) *nftables.Table { return r.conn.AddTable(t) }
func (r *realNFTablesConn) AddChain(c *nftables.Chain) *nftables.Chain { return r.conn.AddChain(c) }
func (r *realNFTablesConn) AddRule(rule *nftables.Rule) *nftables.Rule { return r.conn.AddRule(rule) }
func (r *realNFTablesConn) DelRule(rule *nftables.Rule) error          { return r.conn.DelRule(rule) }
func (r *realNFTablesConn) Flush() error                               { return r.conn.Flush() }

// NFTablesDriver is a SwitchDriver that represents each switch id as its
// own nftables table, with one chain per priority tier standing in for
// an OpenFlow flow table: every installed Rule becomes an nftables rule
// carrying an explicit numeric priority via the chain it lands in.
type NFTablesDriver struct {
	conn NFTablesConn

	mu     sync.Mutex
	tables map[int]*nftables.Table         // switch id -> table
	chains map[int]map[int]*nftables.Chain // switch id -> priority -> chain
	byKey  map[ruleKey]*nftables.Rule      // installed rule lookup for RemoveRule
}

// ruleKey is a comparable projection of (switch, priority, Match): Match
// itself embeds net.IP ([]byte), which is not comparable and so cannot
// be used directly as part of a map key.
type ruleKey struct {
	Switch, Priority int
	EthType          uint16
	IPSrc, IPDst     [16]byte
	InPort           int
}

func newRuleKey(switchID, priority int, m Match) ruleKey {
	k := ruleKey{Switch: switchID, Priority: priority, EthType: m.EthType, InPort: m.InPort}
	copy(k.IPSrc[:], m.IPSrc.To16())
	copy(k.IPDst[:], m.IPDst.To16())
	return k
}

// NewNFTablesDriver returns a driver backed by a live nftables netlink
// connection.
func NewNFTablesDriver() (SwitchDriver, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("rules: nftables connect: %w", err)
	}
	return NewNFTablesDriverWithConn(NewRealNFTablesConn(conn)), nil
}

// NewNFTablesDriverWithConn injects conn directly, for unit tests against
// a fake.
func NewNFTablesDriverWithConn(conn NFTablesConn) *NFTablesDriver {
	return &NFTablesDriver{
		conn:   conn,
		tables: make(map[int]*nftables.Table),
		chains: make(map[int]map[int]*nftables.Chain),
		byKey:  make(map[ruleKey]*nftables.Rule),
	}
}

func (d *NFTablesDriver) tableFor(switchID int) *nftables.Table {
	if t, ok := d.tables[switchID]; ok {
		return t
	}
	t := d.conn.AddTable(&nftables.Table{
		Name:   fmt.Sprintf("netslice-sw%d", switchID),
		Family: nftables.TableFamilyIPv4,
	})
	d.tables[switchID] = t
	d.chains[switchID] = make(map[int]*nftables.Chain)
	return t
}

func (d *NFTablesDriver) chainFor(switchID, priority int) *nftables.Chain {
	t := d.tableFor(switchID)
	if c, ok := d.chains[switchID][priority]; ok {
		return c
	}
	prio := nftables.ChainPriority(-(priority))
	c := d.conn.AddChain(&nftables.Chain{
		Name:     fmt.Sprintf("p%d", priority),
		Table:    t,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookForward,
		Priority: &prio,
	})
	d.chains[switchID][priority] = c
	return c
}

// InstallRule installs r as one nftables rule on the chain for
// (r.Switch, r.Priority), matching ethType/ipSrc/ipDst and either
// accepting (Forward rules become an accept; r.Output is not used or
// stored — this driver has no notion of physical output ports, unlike a
// real OpenFlow switch) or dropping.
func (d *NFTablesDriver) InstallRule(r Rule) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	chain := d.chainFor(r.Switch, r.Priority)

	var exprs []expr.Any
	if r.Match.IPSrc != nil {
		exprs = append(exprs,
			&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: 12, Len: 4},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: r.Match.IPSrc.To4()},
		)
	}
	if r.Match.IPDst != nil {
		exprs = append(exprs,
			&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: 16, Len: 4},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: r.Match.IPDst.To4()},
		)
	}
	if r.Drop {
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictDrop})
	} else {
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictAccept})
	}

	nr := &nftables.Rule{
		Table: d.tables[r.Switch],
		Chain: chain,
		Exprs: exprs,
	}
	nr = d.conn.AddRule(nr)
	if err := d.conn.Flush(); err != nil {
		return fmt.Errorf("rules: nftables flush on install: %w", err)
	}
	d.byKey[newRuleKey(r.Switch, r.Priority, r.Match)] = nr
	return nil
}

// RemoveRule deletes the nftables rule previously installed for the
// given (switchID, priority, match) triple.
func (d *NFTablesDriver) RemoveRule(switchID, priority int, m Match) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := newRuleKey(switchID, priority, m)
	nr, ok := d.byKey[key]
	if !ok {
		return nil // already gone — teardown is best-effort and idempotent
	}
	if err := d.conn.DelRule(nr); err != nil {
		return fmt.Errorf("rules: nftables del rule: %w", err)
	}
	if err := d.conn.Flush(); err != nil {
		return fmt.Errorf("rules: nftables flush on remove: %w", err)
	}
	delete(d.byKey, key)
	return nil
}
