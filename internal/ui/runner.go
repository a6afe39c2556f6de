package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// clearLine erases the current terminal line
const clearLine = "\r\x1b[2K"

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title     string   // e.g. "Deploy"
	Command   string   // e.g. "winiotctl deploy --sideload --reboot"
	Params    []Param  // shown in the header
	StepNames []string // known steps; more may be reported while running
	Output    io.Writer

	// Troubleshoot returns tips for the failure box. May be nil.
	Troubleshoot func(error) []string

	// Live rewrites the running step line in place with a carriage return.
	// Only useful on a terminal.
	Live bool
}

// Operation is the work a Runner wraps. It reports progress through onStep
// and returns details for the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Runner manages the header, step list and result flow for a command.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	progress := NewProgress("", config.StepNames...)
	progress.SetWidth(width)

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: progress,
		output:   config.Output,
		width:    width,
	}
}

// Progress returns the step list tracked by the runner
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run prints the header, executes operation and prints the result box.
// The operation's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(ctx, r.onStep)
	duration := time.Since(start).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	result := NewSuccessResult(r.config.Title+" complete", details...).SetWidth(r.width)
	result.AddDetail("Duration", duration.String())
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

func (r *Runner) onStep(stepNumber int, name string, status StepStatus, message string) {
	if stepNumber < 1 {
		return
	}
	r.progress.UpdateStep(stepNumber, name, status, message)
	line := r.progress.RenderStep(r.progress.Steps[stepNumber-1])

	switch {
	case status.Done():
		if r.config.Live {
			line = clearLine + line
		}
		_, _ = fmt.Fprintln(r.output, line)
	case status == StepRunning && r.config.Live:
		// overwritten when the step finishes
		_, _ = fmt.Fprint(r.output, line+"\r")
	}
}
