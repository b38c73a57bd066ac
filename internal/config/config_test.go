package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExplicitMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
sysfs_root: /fake/sys
platform: DAYTONA_X
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/fake/sys", cfg.SysfsRoot)
	assert.Equal(t, "DAYTONA_X", cfg.Platform)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields fall back to defaults
	assert.Equal(t, "/sys/class/dmi/id", cfg.DMIIDDir)
	assert.Equal(t, "/sys/bus/pci/slots", cfg.PCISlotsDir)
	assert.Equal(t, "/dev/ipmi0", cfg.IPMIDevice)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
