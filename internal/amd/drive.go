package amd

import (
	"fmt"

	"github.com/amdledctl/amdledctl/internal/ibpi"
)

// DeviceKind selects the path-parsing strategy for a drive.
type DeviceKind string

const (
	KindUnknown DeviceKind = "unknown"
	KindNVMe    DeviceKind = "nvme"
	KindSATA    DeviceKind = "sata"
)

// Drive identifies one physical storage device. Path is the hardware
// topology path under sysfs and never changes after resolution. Port
// and Bay are computed once by ResolveDrive. LastApplied is mutated
// only by Controller.Write after a successful LED update.
type Drive struct {
	Path        string
	Kind        DeviceKind
	Port        int
	Bay         int
	LastApplied ibpi.Pattern
}

// bayBitmask converts a 1-based bay index into its bit position within
// the 8-bit BMC status register. Indices outside [1,8] are a resolution
// error, never a wrapped bitmask.
func bayBitmask(bay int) (uint8, error) {
	if bay < 1 || bay > 8 {
		return 0, fmt.Errorf("bay index %d outside valid range [1,8]", bay)
	}
	return 1 << (bay - 1), nil
}
