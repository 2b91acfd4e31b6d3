package cli

import (
	"fmt"

	"github.com/okdaichi/netslice/internal/version"
)

// RunVersion prints build-time version metadata.
func RunVersion(args []string) error {
	fmt.Println(version.Full())
	return nil
}
