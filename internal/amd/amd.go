// Package amd translates drive LED intents into hardware signaling on
// AMD server platforms over one of three backends: SGPIO sysfs writes,
// BMC register updates via IPMI, or the PCI slot attention interface.
package amd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/amdledctl/amdledctl/internal/ipmi"
	"github.com/amdledctl/amdledctl/internal/logging"
)

// ErrUnsupported is returned when no usable LED backend exists for the
// detected platform.
var ErrUnsupported = errors.New("LED interface not supported on this platform")

// Controller routes LED requests to the platform's backend. Platform
// is fixed at construction; callers detect it once and pass it in.
type Controller struct {
	log       logging.Logger
	platform  Platform
	transport ipmi.Transport
	slotsDir  string
}

// New builds a controller for the given platform. transport may be nil
// unless the platform uses the IPMI interface; slotsDir is the PCI
// slot registry (normally /sys/bus/pci/slots).
func New(log logging.Logger, platform Platform, transport ipmi.Transport, slotsDir string) (*Controller, error) {
	if platform.Interface == InterfaceIPMI && transport == nil {
		return nil, fmt.Errorf("platform %s requires an IPMI transport", platform.Variant)
	}
	return &Controller{
		log:       log,
		platform:  platform,
		transport: transport,
		slotsDir:  slotsDir,
	}, nil
}

// Platform returns the platform the controller was built for.
func (c *Controller) Platform() Platform {
	return c.platform
}

// ResolveDrive parses a hardware topology path into a Drive with its
// physical port and register bay computed for the current platform.
func (c *Controller) ResolveDrive(path string) (*Drive, error) {
	d := &Drive{Path: path, LastApplied: ibpi.PatternUnknown}

	var port int
	var err error
	switch {
	case strings.Contains(path, "nvme"):
		d.Kind = KindNVMe
		port, err = nvmePort(c.slotsDir, path)
	case ataSegment.MatchString(path):
		d.Kind = KindSATA
		port, err = sataPort(path)
	default:
		d.Kind = KindUnknown
		return nil, fmt.Errorf("unable to determine device kind from path %s", path)
	}
	if err != nil {
		return nil, err
	}

	port = c.platform.adjustPort(port)
	if port < 1 || port > 24 {
		return nil, fmt.Errorf("adjusted port %d outside valid range [1,24] for path %s", port, path)
	}
	d.Port = port
	// Each MG9098 chip controls 8 drives; the register bay is relative
	// to the chip's group.
	d.Bay = (port-1)%8 + 1
	return d, nil
}

// Write applies a pattern to a drive's LEDs. A request matching the
// drive's last applied pattern is a no-op; LastApplied only advances
// after the backend reports success.
func (c *Controller) Write(d *Drive, pattern ibpi.Pattern) error {
	if !pattern.Valid() {
		return fmt.Errorf("cannot apply pattern %q", pattern)
	}
	if pattern == d.LastApplied {
		c.log.Debug("pattern already applied", "path", d.Path, "pattern", pattern.String())
		return nil
	}

	var err error
	switch c.platform.Interface {
	case InterfaceIPMI:
		err = c.writeIPMI(d, pattern)
	case InterfaceSGPIO:
		err = c.writeSGPIO(d, pattern)
	case InterfaceAttention:
		err = c.writeAttention(d, pattern)
	default:
		c.log.Error("no LED interface for platform", "interface", c.platform.Interface.String())
		return ErrUnsupported
	}
	if err != nil {
		return err
	}

	d.LastApplied = pattern
	return nil
}

func (c *Controller) writeIPMI(d *Drive, pattern ibpi.Pattern) error {
	switch pattern {
	case ibpi.PatternNormal, ibpi.PatternOneshotNormal:
		return c.disableAll(d)
	case ibpi.PatternLocateOff:
		// Locate-off is independently toggleable rather than part of
		// the full disable sweep.
		return c.setLED(d, ibpi.PatternLocateOff, false)
	default:
		return c.setLED(d, pattern, true)
	}
}

// GetPath resolves the filesystem path the active backend uses to
// address the drive, given its controller path and the block device's
// sysfs path.
func (c *Controller) GetPath(cntrlPath, sysfsPath string) (string, error) {
	switch c.platform.Interface {
	case InterfaceIPMI, InterfaceAttention:
		if strings.Contains(cntrlPath, "nvme") {
			return sysfsPath, nil
		}
		if p, ok := truncateAtaPath(cntrlPath); ok {
			return p, nil
		}
		return "", fmt.Errorf("unable to resolve device path for %s", cntrlPath)
	case InterfaceSGPIO:
		return sysfsPath, nil
	default:
		c.log.Error("no LED interface for platform", "interface", c.platform.Interface.String())
		return "", ErrUnsupported
	}
}

// EmEnabled probes whether the active backend can drive enclosure LEDs
// for the controller at path. Unknown interfaces log and report false.
func (c *Controller) EmEnabled(path string) bool {
	switch c.platform.Interface {
	case InterfaceIPMI:
		return c.ipmiEnabled()
	case InterfaceSGPIO:
		return sgpioEnabled(path)
	case InterfaceAttention:
		return true
	default:
		c.log.Error("no LED interface for platform", "interface", c.platform.Interface.String())
		return false
	}
}
