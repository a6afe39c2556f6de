package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/winiotctl/internal/deploy"
	"github.com/muurk/winiotctl/internal/iotapi"
	"github.com/muurk/winiotctl/internal/ui"
)

// Deploy flags
var (
	deployList     bool
	deploySideload bool
	deployStartup  string
	deployReboot   bool
	deployDir      string
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployList, "ls", false, "List installed packages")
	deployCmd.Flags().BoolVar(&deploySideload, "sideload", false, "Replace previous versions and sideload the packages in --dir")
	deployCmd.Flags().StringVar(&deployStartup, "startup", "", "Make this app the startup app")
	deployCmd.Flags().BoolVar(&deployReboot, "reboot", false, "Reboot the device when done")
	deployCmd.Flags().StringVar(&deployDir, "dir", ".", "Build output directory holding the .appx files")
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a build to a device",
	Long: `Run a deployment against one device. Actions always run in this order,
whatever the order of the flags:

  --ls        list installed packages
  --sideload  remove previous versions of the apps in --dir, then sideload
              Dependencies/**/*.appx followed by the *.appx files in --dir
  --startup   make the named app the startup app
  --reboot    reboot the device

The first failing action stops the deployment. A --startup app that is not
installed is reported as a warning, not a failure.`,
	Example: `  # Full deployment from the build output folder
  winiotctl deploy --device kiosk --sideload --startup MyApp --reboot --dir ./AppPackages/MyApp_1.0.0.0_ARM_Test

  # Only switch the startup app
  winiotctl deploy --startup IoTCoreDefaultApp`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func deployPlan() deploy.Plan {
	return deploy.Plan{
		ListPackages: deployList,
		Sideload:     deploySideload,
		StartupApp:   deployStartup,
		Reboot:       deployReboot,
		Root:         deployDir,
	}
}

func runDeploy(cmd *cobra.Command, args []string) error {
	plan := deployPlan()
	if plan.Empty() {
		return deploy.ErrNothingToDo
	}
	cmd.SilenceUsage = true

	t, err := connect(cmd)
	if err != nil {
		return err
	}
	d := deploy.New(t.client)

	if jsonOutput() {
		report, err := d.Run(cmd.Context(), plan, nil)
		recordDeploy(t, report)
		if err != nil {
			return err
		}
		return printJSON(report)
	}

	d.Wait = func(ctx context.Context, label string, fn func(context.Context) error) error {
		return ui.RunWithSpinner(ctx, os.Stdout, label, waitHint(t), fn)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:        "Deploy",
		Command:      deployCommandLine(plan),
		Params:       deployParams(t, plan),
		Troubleshoot: troubleshootingTips,
		// a spinner owns the terminal while packages install
		Live: ui.IsTerminal(os.Stdout) && !plan.Sideload,
	})

	var report *deploy.Report
	err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		var err error
		report, err = d.Run(ctx, plan, func(s deploy.Step) {
			onStep(s.Number, s.Name, stepStatus(s.Status), s.Message)
		})
		if err != nil {
			return nil, err
		}
		return deployDetails(report), nil
	})
	recordDeploy(t, report)
	if err != nil {
		return shown(err)
	}

	p := printer()
	if plan.ListPackages && len(report.Packages) > 0 {
		p.Newline()
		p.Print(iotapi.FormatPackageList(report.Packages))
	}
	if report.StartupNotFound {
		p.Newline()
		p.PrintWarning("Startup app not changed",
			ui.P("App", plan.StartupApp),
			ui.P("Reason", "not installed on the device"),
		)
	}
	return nil
}

// stepStatus maps deployer step statuses to the UI ones
func stepStatus(status string) ui.StepStatus {
	switch status {
	case deploy.StatusInProgress:
		return ui.StepRunning
	case deploy.StatusSuccess:
		return ui.StepComplete
	case deploy.StatusFailed:
		return ui.StepFailed
	case deploy.StatusSkipped:
		return ui.StepSkipped
	default:
		return ui.StepPending
	}
}

// recordDeploy stores what the run changed in the registry. Partial runs
// still count as contact with the device.
func recordDeploy(t *target, report *deploy.Report) {
	if report == nil || t.alias == "" || len(report.Steps) == 0 {
		return
	}
	if report.StartupApp != nil {
		t.registry.SetDefaultApp(t.alias, report.StartupApp.Name)
	}
	t.touch()
}

func deployCommandLine(plan deploy.Plan) string {
	parts := []string{"winiotctl deploy"}
	if plan.ListPackages {
		parts = append(parts, "--ls")
	}
	if plan.Sideload {
		parts = append(parts, "--sideload")
	}
	if plan.StartupApp != "" {
		parts = append(parts, "--startup "+plan.StartupApp)
	}
	if plan.Reboot {
		parts = append(parts, "--reboot")
	}
	return strings.Join(parts, " ")
}

func deployParams(t *target, plan deploy.Plan) []ui.Param {
	params := []ui.Param{ui.P("Device", t.Label())}
	if plan.Sideload {
		params = append(params,
			ui.P("Directory", plan.Root),
			ui.P("Timeout", t.client.SideloadTimeout().String()+" per package"),
		)
	}
	if plan.StartupApp != "" {
		params = append(params, ui.P("Startup App", plan.StartupApp))
	}
	return params
}

func deployDetails(report *deploy.Report) []ui.Param {
	var details []ui.Param
	if len(report.Removed) > 0 {
		details = append(details, ui.P("Removed", strconv.Itoa(len(report.Removed))+" packages"))
	}
	if files := report.Sideloaded(); len(files) > 0 {
		details = append(details, ui.P("Sideloaded", strings.Join(files, ", ")))
	}
	if report.StartupApp != nil {
		details = append(details, ui.P("Startup App", report.StartupApp.RelativeID))
	}
	if report.Rebooted {
		details = append(details, ui.P("Reboot", "requested"))
	}
	if len(details) == 0 {
		details = append(details, ui.P("Steps", strconv.Itoa(len(report.Steps))))
	}
	return details
}
