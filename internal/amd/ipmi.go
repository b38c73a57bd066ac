package amd

import (
	"fmt"

	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/amdledctl/amdledctl/internal/ipmi"
)

const (
	ledNetFn = 0x06
	ledCmd   = 0x52

	// MG9098 chip identity register and the value a healthy chip
	// reports, used by the enablement probe.
	chipIDReg    = 0x63
	chipIDMG9098 = 98
)

// patternRegisters maps each addressable pattern to its register
// offset on the MG9098. Locate-off aliases the locate register so that
// disabling it clears the locate bit. Normal states have no register;
// they are expressed as a full disable at the dispatcher.
var patternRegisters = map[ibpi.Pattern]uint8{
	ibpi.PatternPFA:         0x41,
	ibpi.PatternLocate:      0x42,
	ibpi.PatternLocateOff:   0x42,
	ibpi.PatternFailedDrive: 0x44,
	ibpi.PatternFailedArray: 0x45,
	ibpi.PatternRebuild:     0x46,
	ibpi.PatternHotspare:    0x47,
}

// disableOrder is the sweep used to return a drive to normal. Hotspare
// is deliberately not swept; a spare keeps its LED through resets.
var disableOrder = []ibpi.Pattern{
	ibpi.PatternPFA,
	ibpi.PatternLocate,
	ibpi.PatternLocateOff,
	ibpi.PatternFailedDrive,
	ibpi.PatternFailedArray,
	ibpi.PatternRebuild,
}

func init() {
	for _, p := range ibpi.All() {
		if p == ibpi.PatternNormal || p == ibpi.PatternOneshotNormal {
			continue
		}
		if _, ok := patternRegisters[p]; !ok {
			panic(fmt.Sprintf("pattern %s has no register mapping", p))
		}
	}
}

// setLED enables or disables one pattern's register bit for the drive.
func (c *Controller) setLED(d *Drive, pattern ibpi.Pattern, enable bool) error {
	reg, ok := patternRegisters[pattern]
	if !ok {
		return fmt.Errorf("pattern %s has no addressable register", pattern)
	}
	return c.setRegister(d, reg, enable)
}

// setRegister performs the read-modify-write cycle on a shared status
// register. Only the drive's bay bit changes; sibling bays packed into
// the same byte keep their state. There is no locking here, so two
// concurrent writers on bays sharing a register can race; callers
// serialize access to a platform's BMC.
func (c *Controller) setRegister(d *Drive, reg uint8, enable bool) error {
	mask, err := bayBitmask(d.Bay)
	if err != nil {
		return err
	}

	channel := c.platform.channel()
	tail := c.platform.tailAddr(d.Kind, d.Port)

	resp, err := c.transport.Execute(&ipmi.Request{
		Addr:  ipmi.BMCAddr,
		NetFn: ledNetFn,
		Cmd:   ledCmd,
		Data:  []byte{channel, tail, 0x00, 0x00, reg},
	})
	if err != nil {
		return fmt.Errorf("failed to read register %#02x: %w", reg, err)
	}
	status, err := resp.Status()
	if err != nil {
		return fmt.Errorf("failed to read register %#02x: %w", reg, err)
	}

	var newStatus uint8
	if enable {
		newStatus = status | mask
	} else {
		newStatus = status &^ mask
	}

	// Same frame shape with the register byte replaced by the new
	// status, exactly as the firmware expects.
	_, err = c.transport.Execute(&ipmi.Request{
		Addr:  ipmi.BMCAddr,
		NetFn: ledNetFn,
		Cmd:   ledCmd,
		Data:  []byte{channel, tail, 0x00, 0x00, newStatus},
	})
	if err != nil {
		return fmt.Errorf("failed to write register %#02x: %w", reg, err)
	}
	return nil
}

// disableAll sweeps the drive's bay bit out of every addressable
// register except hotspare. The first error is reported but the sweep
// continues, leaving the LEDs in as clean a state as possible; a
// non-nil result means one or more registers may be inconsistent.
func (c *Controller) disableAll(d *Drive) error {
	var firstErr error
	for _, pattern := range disableOrder {
		if err := c.setLED(d, pattern, false); err != nil {
			c.log.Warn("failed to disable pattern",
				"path", d.Path, "pattern", pattern.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ipmiEnabled probes the first MG9098 chip. Any transport failure or
// unexpected chip identity means the IPMI LED path is unusable.
func (c *Controller) ipmiEnabled() bool {
	resp, err := c.transport.Execute(&ipmi.Request{
		Addr:  ipmi.BMCAddr,
		NetFn: ledNetFn,
		Cmd:   ledCmd,
		Data:  []byte{c.platform.channel(), 0xc0, 0x01, chipIDReg},
	})
	if err != nil {
		c.log.Debug("chip identity probe failed", "error", err)
		return false
	}
	status, err := resp.Status()
	if err != nil {
		return false
	}
	return status == chipIDMG9098
}
