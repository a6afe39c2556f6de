package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/winiotctl/internal/config"
)

var deviceUsername string

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)

	devicesAddCmd.Flags().StringVar(&deviceUsername, "user", "", "Device Portal username for this device (default: preference)")
}

// devicesCmd manages the device registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage saved devices",
	Long: `Manage the device registry. A saved device can be addressed by its alias
with --device, and remembers its username and last startup app.

Passwords are never saved.`,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <alias> <address>",
	Short: "Save a device under an alias",
	Example: `  winiotctl devices add kiosk 192.168.1.40
  winiotctl devices add lab minwinpc.local:8080 --user Admin`,
	Args: cobra.ExactArgs(2),
	RunE: runDevicesAdd,
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	replaced := reg.GetDevice(args[0]) != nil
	if err := reg.AddDevice(args[0], args[1], deviceUsername); err != nil {
		return err
	}
	cmd.SilenceUsage = true
	if err := reg.Save(); err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(map[string]any{"alias": args[0], "device": reg.GetDevice(args[0])})
	}
	verb := "Saved"
	if replaced {
		verb = "Updated"
	}
	fmt.Printf("%s device %s (%s)\n", verb, args[0], args[1])
	return nil
}

var devicesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved devices",
	Args:    cobra.NoArgs,
	RunE:    runDevicesList,
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if jsonOutput() {
		return printJSON(reg.Devices)
	}

	aliases := reg.Aliases()
	if len(aliases) == 0 {
		fmt.Println("No saved devices. Use 'winiotctl devices add <alias> <address>' or 'winiotctl scan'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tADDRESS\tUSERNAME\tSTARTUP APP\tLAST SEEN")
	for _, alias := range aliases {
		d := reg.GetDevice(alias)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", alias, d.Address, reg.Username(d), orDash(d.DefaultApp), lastSeen(d.LastSeen))
	}
	return w.Flush()
}

var devicesRemoveCmd = &cobra.Command{
	Use:     "remove <alias>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved device",
	Args:    cobra.ExactArgs(1),
	RunE:    runDevicesRemove,
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if !reg.RemoveDevice(args[0]) {
		return fmt.Errorf("no saved device named %q", args[0])
	}
	if err := reg.Save(); err != nil {
		return err
	}
	if !jsonOutput() {
		fmt.Printf("Removed device %s\n", args[0])
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func lastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}
