//go:build !linux
// +build !linux

package rules

import "fmt"

// NewNFTablesDriver is unavailable off Linux; callers should fall back
// to RecordingDriver or a configured ExecShaper-style external driver.
func NewNFTablesDriver() (SwitchDriver, error) {
	return nil, fmt.Errorf("rules: nftables driver requires linux")
}
