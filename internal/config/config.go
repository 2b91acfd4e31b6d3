// Package config loads the single YAML configuration document described
// in spec.md §6 and translates it into the immutable domain types every
// other package consumes, using the same two-step
// yaml-shape-then-translate pattern as the teacher's loadSDNConfig.
package config

import (
	"fmt"
	"net"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okdaichi/netslice/internal/catalog"
	"github.com/okdaichi/netslice/internal/hosts"
	"github.com/okdaichi/netslice/internal/topology"
)

// Config is the fully-translated, ready-to-wire configuration.
type Config struct {
	ListenAddr    string
	ShaperDriver  string // "exec", "netlink", or "recording"
	ShaperPath    string // argument to rules.NewExecShaper when ShaperDriver == "exec"
	SwitchDriver  string // "nftables" or "recording"
	EnableMetrics bool
	TraceAddr     string // passed to observability.Config.TraceAddr; empty disables tracing
	ServiceName   string

	Graph   *topology.Graph
	Catalog *catalog.Catalog
	Hosts   *hosts.Locator
}

type yamlDoc struct {
	Server struct {
		ListenAddr    string `yaml:"listen_addr"`
		ShaperDriver  string `yaml:"shaper_driver"`
		ShaperPath    string `yaml:"shaper_path"`
		SwitchDriver  string `yaml:"switch_driver"`
		EnableMetrics bool   `yaml:"enable_metrics"`
		TraceAddr     string `yaml:"trace_addr"`
		ServiceName   string `yaml:"service_name"`
	} `yaml:"server"`

	Switches []int `yaml:"switches"`

	Links []struct {
		From     int `yaml:"from"`
		To       int `yaml:"to"`
		Capacity int `yaml:"capacity"`
		Port     int `yaml:"port"`
	} `yaml:"links"`

	Hosts map[string]struct {
		Switch int    `yaml:"switch"`
		IP     string `yaml:"ip"`
	} `yaml:"hosts"`

	Slices map[string]struct {
		CapacityPct int `yaml:"capacity_pct"`
		Priority    int `yaml:"priority"`
		Flows       []struct {
			Src string `yaml:"src"`
			Dst string `yaml:"dst"`
		} `yaml:"flows"`
	} `yaml:"slices"`
}

// Load reads and parses the YAML document at path into a Config.
// Parse or validation errors abort startup, matching spec.md §6's
// "Parse errors are ConfigurationError and abort startup" contract.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	defer file.Close()

	var doc yamlDoc
	if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	listenAddr := doc.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8090"
	}
	shaperDriver := doc.Server.ShaperDriver
	if shaperDriver == "" {
		shaperDriver = "recording"
	}
	switchDriver := doc.Server.SwitchDriver
	if switchDriver == "" {
		switchDriver = "recording"
	}
	serviceName := doc.Server.ServiceName
	if serviceName == "" {
		serviceName = "netslice-controller"
	}

	edges := make([]topology.EdgeSpec, 0, len(doc.Links))
	for _, l := range doc.Links {
		edges = append(edges, topology.EdgeSpec{From: l.From, To: l.To, Capacity: l.Capacity, Port: l.Port})
	}
	graph := topology.NewGraph(doc.Switches, edges)

	hostList := make([]hosts.Host, 0, len(doc.Hosts))
	for name, h := range doc.Hosts {
		ip := net.ParseIP(h.IP)
		if ip == nil {
			return nil, fmt.Errorf("config: host %s has invalid ip %q", name, h.IP)
		}
		hostList = append(hostList, hosts.Host{Name: name, IP: ip, Switch: h.Switch})
	}
	sort.Slice(hostList, func(i, j int) bool { return hostList[i].Name < hostList[j].Name })
	locator := hosts.NewLocator(hostList)

	sliceNames := make([]string, 0, len(doc.Slices))
	for name := range doc.Slices {
		sliceNames = append(sliceNames, name)
	}
	sort.Strings(sliceNames)

	slices := make([]catalog.Slice, 0, len(sliceNames))
	for _, name := range sliceNames {
		s := doc.Slices[name]
		flows := make([]catalog.Flow, 0, len(s.Flows))
		for _, f := range s.Flows {
			flows = append(flows, catalog.Flow{Src: f.Src, Dst: f.Dst})
		}
		slices = append(slices, catalog.Slice{
			Name:        name,
			Flows:       flows,
			CapacityPct: s.CapacityPct,
			Priority:    s.Priority,
		})
	}

	return &Config{
		ListenAddr:    listenAddr,
		ShaperDriver:  shaperDriver,
		ShaperPath:    doc.Server.ShaperPath,
		SwitchDriver:  switchDriver,
		EnableMetrics: doc.Server.EnableMetrics,
		TraceAddr:     doc.Server.TraceAddr,
		ServiceName:   serviceName,
		Graph:         graph,
		Catalog:       catalog.New(slices),
		Hosts:         locator,
	}, nil
}
