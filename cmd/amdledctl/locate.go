package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amdledctl/amdledctl/internal/db"
	"github.com/amdledctl/amdledctl/internal/ibpi"
	"github.com/spf13/cobra"
)

// LocateResponse is the JSON response structure for application integration
type LocateResponse struct {
	Success    bool    `json:"success"`
	Action     string  `json:"action"` // "on", "off", "timed", "info"
	LEDState   string  `json:"led_state"`
	Device     string  `json:"device"`
	Serial     string  `json:"serial,omitempty"`
	Model      string  `json:"model,omitempty"`
	Port       int     `json:"port"`
	Bay        int     `json:"bay"`
	Kind       string  `json:"kind"`
	Duration   float64 `json:"duration_seconds,omitempty"`
	StopReason string  `json:"stop_reason,omitempty"` // "timeout", "interrupted", "manual"
	Timestamp  string  `json:"timestamp"`
	Error      string  `json:"error,omitempty"`
}

var locateCmd = &cobra.Command{
	Use:   "locate <device>",
	Short: "Flash the bay LED for a drive",
	Long: `Flash the locate LED on a drive's bay to help find it physically.

The device can be a block device name (sda, nvme0n1), a /dev path, or
a serial number.

Modes:
  (default)    Flash LED for --timeout duration, then turn off
  --on         Turn LED on and exit (for external app control)
  --off        Turn LED off
  --info-only  Show drive location without changing LED

The --json flag provides machine-readable output for application integration.

Examples:
  amdledctl locate /dev/sda                # Flash for 30s
  amdledctl locate --timeout 60s nvme0n1   # Flash for 60s
  amdledctl locate --on --json sda         # Turn on, output JSON
  amdledctl locate --off sda               # Turn off`,
	Args: cobra.ExactArgs(1),
	Run:  runLocate,
}

func init() {
	locateCmd.Flags().DurationP("timeout", "t", 30*time.Second, "LED flash duration (e.g., 30s, 1m)")
	locateCmd.Flags().Bool("json", false, "Output result as JSON (for application integration)")
	locateCmd.Flags().Bool("info-only", false, "Only show drive location info, don't change LED")
	locateCmd.Flags().Bool("on", false, "Turn LED on and exit immediately (for external control)")
	locateCmd.Flags().Bool("off", false, "Turn LED off")
}

func runLocate(cmd *cobra.Command, args []string) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	jsonOut, _ := cmd.Flags().GetBool("json")
	infoOnly, _ := cmd.Flags().GetBool("info-only")
	turnOn, _ := cmd.Flags().GetBool("on")
	turnOff, _ := cmd.Flags().GetBool("off")

	a, err := newApp(cfgFile)
	if err != nil {
		locateFail(jsonOut, err, nil)
	}
	defer a.close()

	t, err := a.resolveTarget(args[0])
	if err != nil {
		locateFail(jsonOut, err, nil)
	}

	if infoOnly {
		if jsonOut {
			outputJSON(buildResponse(t, "info", "unknown", "", 0))
		} else {
			fmt.Printf("Device: %s\n", t.dev.Path)
			if t.dev.Serial != nil {
				fmt.Printf("Serial: %s\n", *t.dev.Serial)
			}
			if t.dev.Model != nil {
				fmt.Printf("Model:  %s\n", *t.dev.Model)
			}
			fmt.Printf("Kind:   %s\n", t.drive.Kind)
			fmt.Printf("Port:   %d\n", t.drive.Port)
			fmt.Printf("Bay:    %d\n", t.drive.Bay)
		}
		return
	}

	if turnOff {
		if err := a.applyPattern(t, ibpi.PatternLocateOff, db.ActionLocate); err != nil {
			locateFail(jsonOut, err, t)
		}
		if jsonOut {
			outputJSON(buildResponse(t, "off", "off", "manual", 0))
		} else {
			fmt.Printf("LED OFF for %s (port %d, bay %d)\n", t.dev.Path, t.drive.Port, t.drive.Bay)
		}
		return
	}

	if turnOn {
		if err := a.applyPattern(t, ibpi.PatternLocate, db.ActionLocate); err != nil {
			locateFail(jsonOut, err, t)
		}
		if jsonOut {
			outputJSON(buildResponse(t, "on", "on", "", 0))
		} else {
			fmt.Printf("LED ON for %s (port %d, bay %d)\n", t.dev.Path, t.drive.Port, t.drive.Bay)
		}
		return
	}

	// Timed locate mode (default)
	if err := a.applyPattern(t, ibpi.PatternLocate, db.ActionLocate); err != nil {
		locateFail(jsonOut, err, t)
	}
	startTime := time.Now()

	if jsonOut {
		outputJSON(buildResponse(t, "timed", "on", "", 0))
	} else {
		fmt.Printf("LED ON for %s (port %d, bay %d) - will turn off in %v\n",
			t.dev.Path, t.drive.Port, t.drive.Bay, timeout)
	}

	// Wait for timeout or Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stopReason := "timeout"
	select {
	case <-ctx.Done():
	case <-sigChan:
		stopReason = "interrupted"
		if !jsonOut {
			fmt.Println("\nInterrupted, turning off LED...")
		}
	}

	if err := a.applyPattern(t, ibpi.PatternLocateOff, db.ActionLocate); err != nil {
		locateFail(jsonOut, err, t)
	}

	duration := time.Since(startTime)
	if jsonOut {
		outputJSON(buildResponse(t, "timed", "off", stopReason, duration.Seconds()))
	} else {
		fmt.Printf("LED OFF (was on for %v)\n", duration.Round(time.Second))
	}
}

func buildResponse(t *target, action, ledState, stopReason string, duration float64) *LocateResponse {
	resp := &LocateResponse{
		Success:   true,
		Action:    action,
		LEDState:  ledState,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if t != nil {
		resp.Device = t.dev.Path
		if t.dev.Serial != nil {
			resp.Serial = *t.dev.Serial
		}
		if t.dev.Model != nil {
			resp.Model = *t.dev.Model
		}
		resp.Port = t.drive.Port
		resp.Bay = t.drive.Bay
		resp.Kind = string(t.drive.Kind)
	}
	if stopReason != "" {
		resp.StopReason = stopReason
	}
	if duration > 0 {
		resp.Duration = duration
	}
	return resp
}

func outputJSON(resp *LocateResponse) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(resp)
}

func locateFail(jsonOut bool, err error, t *target) {
	if jsonOut {
		resp := buildResponse(t, "error", "unknown", "", 0)
		resp.Success = false
		resp.Error = err.Error()
		outputJSON(resp)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
