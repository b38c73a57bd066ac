package amd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/amdledctl/amdledctl/internal/ibpi"
)

// sgpioEnabled reports whether the controller at path exposes an
// em_message control anywhere below it, meaning the HBA can drive
// enclosure LEDs over SGPIO.
func sgpioEnabled(path string) bool {
	_, ok := findFilePath(path, "em_message")
	return ok
}

// writeSGPIO drives the enclosure slot's locate and fault attributes
// under the drive's resolved sysfs path.
func (c *Controller) writeSGPIO(d *Drive, pattern ibpi.Pattern) error {
	locate, fault := "0", "0"
	switch pattern {
	case ibpi.PatternLocate:
		locate = "1"
	case ibpi.PatternLocateOff, ibpi.PatternNormal, ibpi.PatternOneshotNormal:
		// both off
	case ibpi.PatternPFA, ibpi.PatternFailedDrive, ibpi.PatternFailedArray,
		ibpi.PatternRebuild, ibpi.PatternHotspare:
		fault = "1"
	default:
		return fmt.Errorf("pattern %s not supported over SGPIO", pattern)
	}

	if err := writeAttr(filepath.Join(d.Path, "locate"), locate); err != nil {
		return err
	}
	return writeAttr(filepath.Join(d.Path, "fault"), fault)
}

func writeAttr(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
