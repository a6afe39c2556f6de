// Winiotctl manages apps on Windows IoT Core devices through the Windows
// Device Portal REST API.
//
// It lists installed packages, removes and sideloads packages, sets the app
// launched at boot and reboots the device. The deploy command runs the whole
// flow against a Visual Studio build output directory in one invocation.
//
// Usage:
//
//	winiotctl [command] [flags]
//
// See 'winiotctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/winiotctl/internal/logging"
	"github.com/muurk/winiotctl/internal/version"
)

func main() {
	// Ctrl+C cancels the running request or install wait
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "winiotctl",
	Short: "Windows IoT Core app deployment utility",
	Long: `Manage apps on Windows IoT Core devices over the Windows Device Portal.

Packages can be listed, removed and sideloaded, the startup app set, and the
device rebooted. 'winiotctl deploy' runs these steps in one go against a
build output directory (*.appx files plus a Dependencies folder).

The device is chosen with --device (a registered alias, an IP address or a
hostname). Without --device, the network is scanned for Device Portal
instances and the only one found is used.

Set WINIOTCTL_LOG_LEVEL=debug to log every request to stderr.`,
	Version: version.Version,
	Example: `  # List packages on a device
  winiotctl ls --device 192.168.1.20 -p p@ssw0rd

  # Replace the app from a build output, make it the startup app and reboot
  winiotctl deploy --sideload --startup MyApp --reboot --dir ./AppPackages

  # Remember a device under an alias
  winiotctl devices add kiosk 192.168.1.20`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless WINIOTCTL_LOG_LEVEL is set
		if err := logging.InitializeFromEnv(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return validateFormat()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("winiotctl %s\n", version.Full())
		fmt.Printf("  go:       %s\n", info.GoVersion)
		fmt.Printf("  platform: %s\n", info.Platform)
	},
}
