package main

import (
	"fmt"
	"strings"

	"github.com/amdledctl/amdledctl/internal/amd"
	"github.com/amdledctl/amdledctl/internal/collector"
	"github.com/amdledctl/amdledctl/internal/config"
	"github.com/amdledctl/amdledctl/internal/db"
	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/amdledctl/amdledctl/internal/ipmi"
	"github.com/amdledctl/amdledctl/internal/logging"
)

// app wires config, logging, platform detection, the state database
// and the LED controller together for the commands.
type app struct {
	cfg       *config.Config
	log       logging.Logger
	database  *db.DB
	ctrl      *amd.Controller
	scanner   *collector.Scanner
	transport ipmi.Transport
}

// target is a fully resolved drive ready for LED operations.
type target struct {
	dev   *collector.Device
	drive *amd.Drive
}

func newApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Initialize(cfg.Logging.Level, cfg.Logging.Format)
	log := logging.GetLogger("amdledctl")

	var platform amd.Platform
	if cfg.Platform != "" {
		platform, err = amd.ParsePlatform(cfg.Platform)
		if err != nil {
			return nil, err
		}
		log.Debug("platform overridden by config", "platform", cfg.Platform)
	} else {
		platform = amd.DetectPlatform(log, cfg.DMIIDDir)
	}

	var transport ipmi.Transport
	if platform.Interface == amd.InterfaceIPMI {
		transport, err = ipmi.Open(cfg.IPMIDevice)
		if err != nil {
			return nil, err
		}
	}

	ctrl, err := amd.New(log, platform, transport, cfg.PCISlotsDir)
	if err != nil {
		if transport != nil {
			transport.Close()
		}
		return nil, err
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		if transport != nil {
			transport.Close()
		}
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		database:  database,
		ctrl:      ctrl,
		scanner:   collector.NewScanner(cfg.SysfsRoot),
		transport: transport,
	}, nil
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
	if a.transport != nil {
		a.transport.Close()
	}
}

// resolveTarget matches an identifier (device name, /dev path or
// serial) against the sysfs scan and resolves the drive's port and
// bay. The last applied pattern is seeded from the database so that
// deduplication survives process restarts.
func (a *app) resolveTarget(identifier string) (*target, error) {
	devices := a.scanner.Collect()

	var dev *collector.Device
	name := strings.TrimPrefix(identifier, "/dev/")
	for _, d := range devices {
		if d.Name == name || d.Path == identifier {
			dev = d
			break
		}
		if d.Serial != nil && *d.Serial == identifier {
			dev = d
			break
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("no drive matches %q", identifier)
	}

	drive, err := a.ctrl.ResolveDrive(dev.CntrlPath)
	if err != nil {
		return nil, err
	}
	if path, err := a.ctrl.GetPath(dev.CntrlPath, dev.SysfsPath); err == nil {
		drive.Path = path
	}

	if rec, err := a.database.GetDrive(drive.Path); err == nil && rec != nil {
		drive.LastApplied = ibpi.Pattern(rec.LastPattern)
	}

	rec := &db.DriveRecord{
		Path: drive.Path,
		Name: dev.Name,
		Kind: string(drive.Kind),
		Port: drive.Port,
		Bay:  drive.Bay,
	}
	if dev.Serial != nil {
		rec.Serial = *dev.Serial
	}
	if dev.Model != nil {
		rec.Model = *dev.Model
	}
	if dev.SizeBytes != nil {
		rec.SizeBytes = *dev.SizeBytes
	}
	if err := a.database.UpsertDrive(rec); err != nil {
		a.log.Warn("failed to record drive", "path", drive.Path, "error", err)
	}

	return &target{dev: dev, drive: drive}, nil
}

// applyPattern writes a pattern to the target and records the attempt
// in the event history.
func (a *app) applyPattern(t *target, pattern ibpi.Pattern, action string) error {
	err := a.ctrl.Write(t.drive, pattern)

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if dbErr := a.database.RecordEvent(t.drive.Path, pattern.String(), action, err == nil, errMsg); dbErr != nil {
		a.log.Warn("failed to record event", "error", dbErr)
	}
	if err != nil {
		return err
	}

	if dbErr := a.database.SetLastPattern(t.drive.Path, pattern.String()); dbErr != nil {
		a.log.Warn("failed to persist pattern", "error", dbErr)
	}
	return nil
}
