package config

import (
	"fmt"

	"github.com/okdaichi/netslice/internal/rules"
)

// BuildSwitchDriver selects the rules.SwitchDriver named by
// cfg.SwitchDriver ("recording" or "nftables"). "nftables" only succeeds
// on linux builds (see rules.NewNFTablesDriver's stub).
func (cfg *Config) BuildSwitchDriver() (rules.SwitchDriver, error) {
	switch cfg.SwitchDriver {
	case "", "recording":
		return rules.NewRecordingDriver(), nil
	case "nftables":
		return rules.NewNFTablesDriver()
	default:
		return nil, fmt.Errorf("config: unknown switch_driver %q", cfg.SwitchDriver)
	}
}

// BuildShaper selects the rules.Shaper named by cfg.ShaperDriver
// ("recording", "exec", or "netlink"). "exec" requires ShaperPath to be
// set; "netlink" only succeeds on linux builds.
func (cfg *Config) BuildShaper() (rules.Shaper, error) {
	switch cfg.ShaperDriver {
	case "", "recording":
		return rules.NewRecordingShaper(), nil
	case "exec":
		if cfg.ShaperPath == "" {
			return nil, fmt.Errorf("config: shaper_driver \"exec\" requires shaper_path")
		}
		return rules.NewExecShaper(cfg.ShaperPath), nil
	case "netlink":
		return rules.NewNetlinkShaper()
	default:
		return nil, fmt.Errorf("config: unknown shaper_driver %q", cfg.ShaperDriver)
	}
}
