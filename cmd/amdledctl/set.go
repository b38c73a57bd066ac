package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/amdledctl/amdledctl/internal/db"
	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <device> <pattern>",
	Short: "Apply an LED pattern to a drive",
	Long: `Apply an LED pattern to a drive's enclosure bay.

The device can be a block device name (sda, nvme0n1), a /dev path, or
a serial number. Patterns:

  ` + patternList() + `

Aliases: off (normal), fault/failed (failed_drive), ident (locate).

A request matching the drive's last applied pattern is skipped without
touching the hardware.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		pattern, err := ibpi.Parse(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		a, err := newApp(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		t, err := a.resolveTarget(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := a.applyPattern(t, pattern, db.ActionSet); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s (port %d, bay %d)\n", t.dev.Name, pattern, t.drive.Port, t.drive.Bay)
	},
}

var normalCmd = &cobra.Command{
	Use:   "normal <device>",
	Short: "Return a drive's LEDs to the normal state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		t, err := a.resolveTarget(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := a.applyPattern(t, ibpi.PatternNormal, db.ActionNormal); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: normal (port %d, bay %d)\n", t.dev.Name, t.drive.Port, t.drive.Bay)
	},
}

func patternList() string {
	names := make([]string, 0, len(ibpi.All()))
	for _, p := range ibpi.All() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}
