package amd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/amdledctl/amdledctl/internal/ibpi"
)

// writeAttention toggles the PCI slot attention indicator for the
// drive's port. The slot firmware only distinguishes on and off, so
// every non-normal pattern lights the indicator.
func (c *Controller) writeAttention(d *Drive, pattern ibpi.Pattern) error {
	path := filepath.Join(c.slotsDir, strconv.Itoa(d.Port), "attention")
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("attention control unavailable for port %d: %w", d.Port, err)
	}

	value := "1"
	switch pattern {
	case ibpi.PatternNormal, ibpi.PatternOneshotNormal, ibpi.PatternLocateOff:
		value = "0"
	}
	return writeAttr(path, value)
}
