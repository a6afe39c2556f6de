package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/config"
	"github.com/muurk/winiotctl/internal/discovery"
	"github.com/muurk/winiotctl/internal/logging"
)

var scanWait time.Duration

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().DurationVarP(&scanWait, "wait", "w", discovery.DefaultScanTimeout, "How long to listen for devices")
}

// scanCmd discovers devices on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Windows IoT devices on the network",
	Long: `Scan for Windows Device Portal instances using mDNS/DNS-SD discovery.

Devices already in the registry are shown with their alias and have their
last-seen time updated.`,
	Example: `  # Scan for 5 seconds (default)
  winiotctl scan

  # Longer scan for slow networks
  winiotctl scan --wait 15s

  # JSON output for scripting
  winiotctl scan --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

// scanResult is a discovered device plus its registry alias
type scanResult struct {
	*discovery.Device
	Alias string `json:"alias,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if !jsonOutput() {
		fmt.Printf("Scanning for Windows IoT devices (timeout: %s)...\n\n", scanWait)
	}

	devices, err := discovery.ScanForDevices(cmd.Context(), scanWait)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	results := matchRegistry(devices)

	if jsonOutput() {
		return printJSON(results)
	}

	if len(results) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and on the same network")
		fmt.Println("  - Check that Device Portal is enabled on the device")
		fmt.Println("  - Multicast DNS may be blocked by the network or a firewall")
		fmt.Println("  - Try increasing --wait for slower networks")
		fmt.Println("  - Use --device to specify the IP address manually")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.Name)
		if r.Alias != "" {
			fmt.Printf("   Alias:    %s\n", r.Alias)
		}
		fmt.Printf("   Hostname: %s\n", r.ShortHostname())
		fmt.Printf("   Portal:   %s\n", r.BaseURL())
		if len(r.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", r.Metadata)
		}
		fmt.Println()
	}

	fmt.Println("Use 'winiotctl devices add <alias> <ip>' to save a device")
	fmt.Println("Use 'winiotctl ls --device <ip>' to list its packages")
	return nil
}

// matchRegistry attaches registry aliases to discovered devices and marks
// them as seen. Registry errors only cost the aliases.
func matchRegistry(devices []*discovery.Device) []scanResult {
	results := make([]scanResult, len(devices))
	for i, d := range devices {
		results[i].Device = d
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Failed to load registry", zap.Error(err))
		return results
	}

	seen := false
	for i, r := range results {
		for _, alias := range reg.Aliases() {
			if r.Matches(reg.GetDevice(alias).Address) {
				results[i].Alias = alias
				reg.UpdateDeviceLastSeen(alias)
				seen = true
				break
			}
		}
	}
	if seen {
		if err := reg.Save(); err != nil {
			logging.Warn("Failed to save registry", zap.Error(err))
		}
	}
	return results
}
