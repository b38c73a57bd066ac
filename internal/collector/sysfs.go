package collector

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amdledctl/amdledctl/internal/cache"
)

// Device represents block device data collected from sysfs (no process
// spawning, no drive wake)
type Device struct {
	// Identification
	Name   string  // sda, nvme0n1, etc.
	Path   string  // /dev/sda
	Serial *string // from device/serial or vpd_pg80
	Model  *string // from device/model

	// Hardware topology
	SysfsPath string // /sys/block/<name>
	CntrlPath string // resolved controller path under /sys/devices

	// Size in bytes (size attribute is 512-byte sectors)
	SizeBytes *int64
}

// Scanner walks a sysfs tree for storage devices. Root is normally
// "/sys"; tests point it at a fixture directory.
type Scanner struct {
	Root string
}

// NewScanner creates a scanner over the given sysfs root
func NewScanner(root string) *Scanner {
	if root == "" {
		root = "/sys"
	}
	return &Scanner{Root: root}
}

// Collect gathers all SATA and NVMe block devices from sysfs
func (s *Scanner) Collect() map[string]*Device {
	c := cache.Global()
	cacheKey := "sysfs:block:" + s.Root

	if cached := c.Get(cacheKey); cached != nil {
		return cached.(map[string]*Device)
	}

	devices := make(map[string]*Device)

	entries, err := os.ReadDir(filepath.Join(s.Root, "block"))
	if err != nil {
		return devices
	}

	for _, entry := range entries {
		name := entry.Name()

		// Skip loop, dm, md and friends
		if !strings.HasPrefix(name, "sd") && !strings.HasPrefix(name, "nvme") {
			continue
		}

		dev := s.collectDevice(name)
		if dev != nil {
			devices[name] = dev
		}
	}

	c.SetFast(cacheKey, devices)
	return devices
}

// collectDevice gathers data for a single block device
func (s *Scanner) collectDevice(name string) *Device {
	blockPath := filepath.Join(s.Root, "block", name)
	devicePath := filepath.Join(blockPath, "device")

	if _, err := os.Stat(devicePath); os.IsNotExist(err) {
		return nil
	}

	dev := &Device{
		Name:      name,
		Path:      "/dev/" + name,
		SysfsPath: blockPath,
	}

	// Resolve the device link to the controller's hardware path; this
	// is the path the LED backends parse for slot and port numbers
	if resolved, err := filepath.EvalSymlinks(devicePath); err == nil {
		dev.CntrlPath = resolved
	} else {
		dev.CntrlPath = devicePath
	}

	// Model
	if data, err := os.ReadFile(filepath.Join(devicePath, "model")); err == nil {
		model := strings.TrimSpace(string(data))
		if model != "" {
			dev.Model = &model
		}
	}

	// Serial: NVMe exposes it directly, SCSI via VPD page 80
	if data, err := os.ReadFile(filepath.Join(devicePath, "serial")); err == nil {
		serial := strings.TrimSpace(string(data))
		if serial != "" {
			dev.Serial = &serial
		}
	} else if data, err := os.ReadFile(filepath.Join(devicePath, "vpd_pg80")); err == nil {
		// VPD page 80 is binary, serial starts after 4-byte header
		if len(data) > 4 {
			serial := strings.TrimSpace(string(data[4:]))
			serial = strings.Map(func(r rune) rune {
				if r >= 32 && r < 127 {
					return r
				}
				return -1
			}, serial)
			if serial != "" {
				dev.Serial = &serial
			}
		}
	}

	// Size (in 512-byte sectors)
	if data, err := os.ReadFile(filepath.Join(blockPath, "size")); err == nil {
		if sectors, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			bytes := sectors * 512
			dev.SizeBytes = &bytes
		}
	}

	return dev
}
