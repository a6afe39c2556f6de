package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/winiotctl/internal/iotapi"
	"github.com/muurk/winiotctl/internal/ui"
)

// Command flags
var (
	assumeYes   bool
	showStartup bool
)

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(sideloadCmd)
	rootCmd.AddCommand(startupCmd)
	rootCmd.AddCommand(rebootCmd)

	removeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	rebootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	startupCmd.Flags().BoolVar(&showStartup, "show", false, "Show the current startup app instead of setting one")
}

// lsCmd lists installed packages
var lsCmd = &cobra.Command{
	Use:     "ls [filter]",
	Aliases: []string{"list"},
	Short:   "List installed packages",
	Long: `List the packages installed on the device.

With a filter, only packages whose name contains the filter are shown. When
exactly one package matches, all of its identifiers are printed.`,
	Example: `  winiotctl ls --device kiosk
  winiotctl ls IoT --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	t, err := connect(cmd)
	if err != nil {
		return err
	}

	pkgs, err := t.client.ListInstalledPackages(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list packages on %s: %w", t.Label(), err)
	}
	t.touch()

	if len(args) == 1 {
		pkgs = iotapi.FindPackagesByName(pkgs, args[0])
	}

	if jsonOutput() {
		return printJSON(pkgs)
	}
	fmt.Print(formatPackages(pkgs, len(args) == 1))
	return nil
}

// formatPackages shows every identifier when a filter leaves one package
func formatPackages(pkgs []iotapi.PackageDescriptor, filtered bool) string {
	if filtered && len(pkgs) == 1 {
		return iotapi.FormatPackageDetail(pkgs[0])
	}
	return iotapi.FormatPackageList(pkgs)
}

// removeCmd uninstalls a package
var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm", "uninstall"},
	Short:   "Remove an installed package",
	Long: `Remove the first installed package whose name contains <name>.

Packages the device marks as non-removable are refused without contacting
the device again.`,
	Example: `  winiotctl remove MyApp --device kiosk
  winiotctl remove MyApp --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	t, err := connect(cmd)
	if err != nil {
		return err
	}

	pkgs, err := t.client.ListInstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list packages on %s: %w", t.Label(), err)
	}
	pkg, ok := iotapi.FindPackageByName(pkgs, args[0])
	if !ok {
		return fmt.Errorf("no installed package matches %q on %s", args[0], t.Label())
	}

	// non-removable packages fail in RemovePackage, no need to ask first
	if pkg.CanUninstall && !assumeYes && !jsonOutput() {
		if !ui.Confirm(os.Stdin, os.Stdout, ui.RemoveConfirmation(t.Label(), pkg.Name, pkg.FullName)) {
			return nil
		}
	}

	if err := t.client.RemovePackage(ctx, pkg); err != nil {
		return fmt.Errorf("failed to remove %s: %w", pkg.Name, err)
	}
	t.touch()

	if jsonOutput() {
		return printJSON(map[string]any{"removed": pkg})
	}
	printer().PrintSuccess("Package removed",
		ui.P("Device", t.Label()),
		ui.P("Package", pkg.Name),
		ui.P("Full Name", pkg.FullName),
	)
	return nil
}

// sideloadCmd uploads and installs package files
var sideloadCmd = &cobra.Command{
	Use:   "sideload <file.appx>...",
	Short: "Sideload package files",
	Long: `Upload each package file and wait until the device reports the install
result. Files are installed in the order given; the first failure stops the
remaining ones.

Previous versions are not removed; use 'winiotctl deploy --sideload' for
that.`,
	Example: `  winiotctl sideload Dependencies/ARM/Microsoft.VCLibs.ARM.14.00.appx MyApp_1.0.0.0_ARM.appx
  winiotctl sideload MyApp_1.0.0.0_ARM.appx --timeout 10m`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSideload,
}

func runSideload(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	t, err := connect(cmd)
	if err != nil {
		return err
	}

	if jsonOutput() {
		var installed []string
		for _, file := range args {
			if err := t.client.SideloadPackage(cmd.Context(), file); err != nil {
				return err
			}
			installed = append(installed, filepath.Base(file))
		}
		t.touch()
		return printJSON(map[string]any{"installed": installed})
	}

	names := make([]string, len(args))
	for i, file := range args {
		names[i] = "Sideload " + filepath.Base(file)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Sideload",
		Command: cmd.CommandPath(),
		Params: []ui.Param{
			ui.P("Device", t.Label()),
			ui.P("Packages", strconv.Itoa(len(args))),
			ui.P("Timeout", t.client.SideloadTimeout().String()+" per package"),
		},
		StepNames:    names,
		Troubleshoot: troubleshootingTips,
	})

	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		for i, file := range args {
			n := i + 1
			onStep(n, "", ui.StepRunning, "")
			err := ui.RunWithSpinner(ctx, os.Stdout, "Installing "+filepath.Base(file), waitHint(t), func(ctx context.Context) error {
				return t.client.SideloadPackage(ctx, file)
			})
			if err != nil {
				onStep(n, "", ui.StepFailed, iotapi.GetShortErrorMessage(err))
				return nil, err
			}
			onStep(n, "", ui.StepComplete, "")
		}
		return []ui.Param{ui.P("Installed", strconv.Itoa(len(args))+" packages")}, nil
	})
	if err != nil {
		return shown(err)
	}
	t.touch()
	return nil
}

func waitHint(t *target) string {
	return "timeout " + t.client.SideloadTimeout().String()
}

// startupCmd shows or sets the app launched at boot
var startupCmd = &cobra.Command{
	Use:   "startup [name]",
	Short: "Set or show the startup app",
	Long: `Make the first installed package whose name contains [name] the app the
device launches at boot. The change is read back from the device and the
command fails if the device does not report the package as startup app.

With --show, print the current startup app and the candidates instead.`,
	Example: `  winiotctl startup MyApp --device kiosk
  winiotctl startup --show`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStartup,
}

func runStartup(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	if showStartup == (len(args) == 1) {
		cmd.SilenceUsage = false
		return fmt.Errorf("give either an app name or --show")
	}

	t, err := connect(cmd)
	if err != nil {
		return err
	}

	if showStartup {
		info, err := t.client.GetDefaultApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to read startup app from %s: %w", t.Label(), err)
		}
		t.touch()
		if jsonOutput() {
			return printJSON(info)
		}
		printer().PrintHeader("Startup app", cmd.CommandPath(), ui.P("Device", t.Label()))
		fmt.Println(info.Summary())
		for _, c := range info.Candidates {
			marker := " "
			if c.IsStartup {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, c.RelativeID)
		}
		return nil
	}

	pkgs, err := t.client.ListInstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list packages on %s: %w", t.Label(), err)
	}
	pkg, ok := iotapi.FindPackageByName(pkgs, args[0])
	if !ok {
		return fmt.Errorf("no installed package matches %q on %s", args[0], t.Label())
	}

	if err := t.client.SetDefaultStartupApp(ctx, pkg); err != nil {
		return fmt.Errorf("failed to make %s the startup app: %w", pkg.Name, err)
	}
	if t.alias != "" {
		t.registry.SetDefaultApp(t.alias, pkg.Name)
	}
	t.touch()

	if jsonOutput() {
		return printJSON(map[string]any{"startup": pkg})
	}
	printer().PrintSuccess("Startup app set",
		ui.P("Device", t.Label()),
		ui.P("Package", pkg.Name),
		ui.P("App ID", pkg.RelativeID),
	)
	return nil
}

// rebootCmd restarts the device
var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the device",
	Long: `Ask the device to restart. The command returns once the device has
accepted the request; it does not wait for the device to come back.`,
	Example: `  winiotctl reboot --device kiosk --yes`,
	Args:    cobra.NoArgs,
	RunE:    runReboot,
}

func runReboot(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	t, err := connect(cmd)
	if err != nil {
		return err
	}

	if !assumeYes && !jsonOutput() {
		if !ui.Confirm(os.Stdin, os.Stdout, ui.RebootConfirmation(t.Label())) {
			return nil
		}
	}

	if err := t.client.RebootDevice(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reboot %s: %w", t.Label(), err)
	}
	t.touch()

	if jsonOutput() {
		return printJSON(map[string]any{"rebooted": t.address})
	}
	printer().PrintSuccess("Reboot requested", ui.P("Device", t.Label()))
	return nil
}
