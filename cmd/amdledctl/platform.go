package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// PlatformInfo is the JSON shape of the platform command output
type PlatformInfo struct {
	Product   string `json:"product,omitempty"`
	Interface string `json:"interface"`
	Variant   string `json:"variant"`
	Override  bool   `json:"override"`
}

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Show the detected LED platform and interface",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOut, _ := cmd.Flags().GetBool("json")
		probe, _ := cmd.Flags().GetString("probe")

		a, err := newApp(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		p := a.ctrl.Platform()
		info := PlatformInfo{
			Product:   p.Product,
			Interface: p.Interface.String(),
			Variant:   p.Variant.String(),
			Override:  a.cfg.Platform != "",
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(info)
		} else {
			if info.Product != "" {
				fmt.Printf("Product:   %s\n", info.Product)
			}
			fmt.Printf("Interface: %s\n", info.Interface)
			fmt.Printf("Variant:   %s\n", info.Variant)
			if info.Override {
				fmt.Println("(platform set by config override)")
			}
		}

		if probe != "" {
			if a.ctrl.EmEnabled(probe) {
				fmt.Println("Enclosure LED control: available")
			} else {
				fmt.Println("Enclosure LED control: not available")
				os.Exit(1)
			}
		}
	},
}

func init() {
	platformCmd.Flags().Bool("json", false, "Output as JSON")
	platformCmd.Flags().String("probe", "", "Probe LED availability for the given controller path")
}
