// Package ui provides terminal output components for the winiotctl CLI.
//
// Components are rendered with Lipgloss and printed once; nothing here owns
// the terminal except the sideload spinner, which runs a short-lived Bubble
// Tea program while the device installs a package.
//
// # Components
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: step list (with optional bar) for multi-step commands
//   - Result: success, failure and warning boxes
//   - OutputBox: muted box for raw lines such as an error's cause chain
//   - SpinnerModel: wait indicator used by RunWithSpinner
//   - Confirm: warning box plus typed confirmation for destructive commands
//
// Runner ties Header, Progress and Result together:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Deploy",
//	    Command: "winiotctl deploy --sideload --reboot",
//	    Params:  []ui.Param{ui.P("Device", "192.168.1.20")},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, "List packages", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "List packages", ui.StepComplete, "42 packages")
//	    return nil, nil
//	})
//
// # Logging
//
// zap logging is silent unless WINIOTCTL_LOG_LEVEL is set, and goes to
// stderr, so the output of this package is not interleaved with log lines.
package ui
