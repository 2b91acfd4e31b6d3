//go:build !linux
// +build !linux

package rules

import "fmt"

// NewNetlinkShaper is unavailable off Linux; deployments there should
// configure ExecShaper instead.
func NewNetlinkShaper() (Shaper, error) {
	return nil, fmt.Errorf("rules: netlink shaper requires linux")
}
