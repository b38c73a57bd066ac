package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// SysfsRoot lets tests and chrooted environments relocate /sys.
	SysfsRoot string `yaml:"sysfs_root,omitempty"`

	// DMIIDDir is the directory holding the firmware identity files
	// (product_name and friends).
	DMIIDDir string `yaml:"dmi_id_dir,omitempty"`

	// PCISlotsDir is the platform slot registry scanned to resolve
	// NVMe bay numbers.
	PCISlotsDir string `yaml:"pci_slots_dir,omitempty"`

	// IPMIDevice is the OpenIPMI character device used to reach the BMC.
	IPMIDevice string `yaml:"ipmi_device,omitempty"`

	// DatabasePath is the LED state database location.
	DatabasePath string `yaml:"database_path,omitempty"`

	// Platform overrides firmware platform detection ("ETHANOL_X",
	// "DAYTONA_X", ...). Intended for lab boxes with blank DMI tables.
	Platform string `yaml:"platform,omitempty"`

	Logging Logging `yaml:"logging"`
}

type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	SysfsRoot:     "/sys",
	DMIIDDir:      "/sys/class/dmi/id",
	PCISlotsDir:   "/sys/bus/pci/slots",
	IPMIDevice:    "/dev/ipmi0",
	DatabasePath:  "/var/lib/amdledctl/state.db",
	Logging: Logging{
		Level:  "info",
		Format: "text",
	},
}

func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/amdledctl/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/amdledctl/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Apply defaults for anything the file left empty
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = defaultConfig.SysfsRoot
	}
	if cfg.DMIIDDir == "" {
		cfg.DMIIDDir = defaultConfig.DMIIDDir
	}
	if cfg.PCISlotsDir == "" {
		cfg.PCISlotsDir = defaultConfig.PCISlotsDir
	}
	if cfg.IPMIDevice == "" {
		cfg.IPMIDevice = defaultConfig.IPMIDevice
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultConfig.DatabasePath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultConfig.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultConfig.Logging.Format
	}

	return &cfg, nil
}
