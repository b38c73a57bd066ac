package main

import (
	"fmt"
	"os"

	"github.com/amdledctl/amdledctl/internal/version"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "amdledctl",
	Short: "Drive LED control for AMD server platforms",
	Long: `amdledctl drives storage bay LEDs on AMD server platforms. It detects
whether the machine signals LEDs over SGPIO, BMC registers via IPMI, or
the PCI slot attention interface, resolves each drive's physical bay,
and applies locate/fault/rebuild patterns without disturbing sibling
bays sharing the same status register.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/amdledctl/config.yaml)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(normalCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(platformCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
