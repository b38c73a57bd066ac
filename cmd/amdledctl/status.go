package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// DriveStatus is one row of the status output
type DriveStatus struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Serial      string `json:"serial,omitempty"`
	Model       string `json:"model,omitempty"`
	Kind        string `json:"kind"`
	Size        string `json:"size,omitempty"`
	Port        int    `json:"port"`
	Bay         int    `json:"bay"`
	LastPattern string `json:"last_pattern"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show drives with their bays and LED patterns",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		devices := a.scanner.Collect()
		names := make([]string, 0, len(devices))
		for name := range devices {
			names = append(names, name)
		}
		sort.Strings(names)

		var rows []DriveStatus
		for _, name := range names {
			dev := devices[name]
			row := DriveStatus{
				Name: dev.Name,
				Path: dev.Path,
				Kind: "unknown",
			}
			if dev.Serial != nil {
				row.Serial = *dev.Serial
			}
			if dev.Model != nil {
				row.Model = *dev.Model
			}
			if dev.SizeBytes != nil {
				row.Size = humanize.Bytes(uint64(*dev.SizeBytes))
			}

			if drive, err := a.ctrl.ResolveDrive(dev.CntrlPath); err == nil {
				row.Kind = string(drive.Kind)
				row.Port = drive.Port
				row.Bay = drive.Bay
				ledPath := dev.CntrlPath
				if p, err := a.ctrl.GetPath(dev.CntrlPath, dev.SysfsPath); err == nil {
					ledPath = p
				}
				if pattern, err := a.database.LastPattern(ledPath); err == nil {
					row.LastPattern = pattern
				}
			} else {
				a.log.Debug("drive not resolvable", "name", dev.Name, "error", err)
				row.LastPattern = "unknown"
			}

			rows = append(rows, row)
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(rows)
			return
		}

		printStatus(rows, a.ctrl.Platform().Interface.String())
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Output as JSON")
}

func printStatus(rows []DriveStatus, iface string) {
	tty := isatty.IsTerminal(os.Stdout.Fd())

	if tty {
		fmt.Printf("\033[1mLED interface: %s\033[0m\n\n", iface)
	} else {
		fmt.Printf("LED interface: %s\n\n", iface)
	}

	fmt.Printf("%-10s %-6s %-5s %-4s %-10s %-14s %s\n",
		"DEVICE", "KIND", "PORT", "BAY", "SIZE", "PATTERN", "SERIAL")
	for _, r := range rows {
		pattern := r.LastPattern
		if tty && pattern != "" && pattern != "unknown" && pattern != "normal" {
			pattern = "\033[33m" + pattern + "\033[0m"
		}
		fmt.Printf("%-10s %-6s %-5d %-4d %-10s %-14s %s\n",
			r.Name, r.Kind, r.Port, r.Bay, r.Size, pattern, r.Serial)
	}
}
