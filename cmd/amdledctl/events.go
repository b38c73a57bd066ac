package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent LED write history",
	Run: func(cmd *cobra.Command, args []string) {
		jsonOut, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.close()

		events, err := a.database.ListEvents(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(events)
			return
		}

		if len(events) == 0 {
			fmt.Println("No LED events recorded")
			return
		}

		fmt.Printf("%-20s %-8s %-14s %-6s %s\n", "WHEN", "ACTION", "PATTERN", "OK", "DRIVE")
		for _, e := range events {
			ok := "yes"
			if !e.OK {
				ok = "no"
			}
			when := humanize.Time(e.Timestamp)
			if time.Since(e.Timestamp) > 7*24*time.Hour {
				when = e.Timestamp.Format("2006-01-02 15:04")
			}
			fmt.Printf("%-20s %-8s %-14s %-6s %s\n", when, e.Action, e.Pattern, ok, e.DrivePath)
			if e.Error != "" {
				fmt.Printf("    error: %s\n", e.Error)
			}
		}
	},
}

func init() {
	eventsCmd.Flags().Bool("json", false, "Output as JSON")
	eventsCmd.Flags().IntP("limit", "n", 50, "Maximum events to show")
}
