package deploy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/iotapi"
	"github.com/muurk/winiotctl/internal/logging"
)

// DeviceAPI is the part of the device client the deployer needs.
// *iotapi.Client implements it.
type DeviceAPI interface {
	ListInstalledPackages(ctx context.Context) ([]iotapi.PackageDescriptor, error)
	RemovePackage(ctx context.Context, pkg iotapi.PackageDescriptor) error
	SideloadPackage(ctx context.Context, filePath string) error
	SetDefaultStartupApp(ctx context.Context, pkg iotapi.PackageDescriptor) error
	RebootDevice(ctx context.Context) error
}

// ErrNothingToDo is returned by Run when the plan requests no action.
var ErrNothingToDo = errors.New("nothing to do: request at least one of list, sideload, startup or reboot")

// Plan selects which deployment actions run. Actions always run in the order
// list, sideload, startup, reboot.
type Plan struct {
	ListPackages bool
	Sideload     bool
	StartupApp   string // app name to make the startup app; empty skips
	Reboot       bool
	Root         string // build output directory for Sideload
}

// Empty reports whether the plan requests no action
func (p Plan) Empty() bool {
	return !p.ListPackages && !p.Sideload && p.StartupApp == "" && !p.Reboot
}

// Step statuses
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
)

// Step is one progress event.
type Step struct {
	Number  int    // 1-based, in execution order
	Name    string // e.g. "Sideload MyApp_1.0.0.0_ARM.appx"
	Status  string // one of the Status constants
	Message string // e.g. "4 packages", "not installed on the device"
}

// StepFunc receives progress events. Each step is reported once as in
// progress and once with its final status.
type StepFunc func(Step)

// Report summarizes a deployment run.
type Report struct {
	Packages        []iotapi.PackageDescriptor // most recent listing
	Removed         []iotapi.PackageDescriptor
	Dependencies    []string // sideloaded dependency files
	Apps            []string // sideloaded app files
	StartupApp      *iotapi.PackageDescriptor
	StartupNotFound bool
	Rebooted        bool
	Steps           []Step // final status of every step
	Duration        time.Duration
}

// Sideloaded returns the base names of all sideloaded files in order
func (r *Report) Sideloaded() []string {
	return lo.Map(slices.Concat(r.Dependencies, r.Apps), func(path string, _ int) string {
		return filepath.Base(path)
	})
}

// Deployer runs deployment plans against one device.
type Deployer struct {
	Device DeviceAPI

	// Wait wraps each sideload, e.g. with a spinner. May be nil.
	Wait func(ctx context.Context, label string, fn func(context.Context) error) error

	// Logger defaults to the package logger
	Logger *zap.Logger
}

// New creates a Deployer for device
func New(device DeviceAPI) *Deployer {
	return &Deployer{Device: device}
}

// run is the state of one Run call
type run struct {
	d      *Deployer
	log    *zap.Logger
	onStep StepFunc
	report *Report
	n      int
}

// Run executes plan. The first failing step aborts the remaining steps; the
// returned report covers everything done up to that point.
func (d *Deployer) Run(ctx context.Context, plan Plan, onStep StepFunc) (*Report, error) {
	if plan.Empty() {
		return &Report{}, ErrNothingToDo
	}

	log := d.Logger
	if log == nil {
		log = logging.GetLogger()
	}
	log = log.With(zap.String("deploy_id", uuid.NewString()))
	if onStep == nil {
		onStep = func(Step) {}
	}

	r := &run{d: d, log: log, onStep: onStep, report: &Report{}}
	start := time.Now()
	log.Info("Deploy started",
		zap.Bool("list", plan.ListPackages),
		zap.Bool("sideload", plan.Sideload),
		zap.String("startup_app", plan.StartupApp),
		zap.Bool("reboot", plan.Reboot),
		zap.String("root", plan.Root),
	)

	err := r.execute(ctx, plan)
	r.report.Duration = time.Since(start)

	if err != nil {
		log.Warn("Deploy aborted", zap.Error(err), zap.Int("steps", r.n))
		return r.report, err
	}
	log.Info("Deploy finished", zap.Duration("duration", r.report.Duration))
	return r.report, nil
}

func (r *run) execute(ctx context.Context, plan Plan) error {
	if plan.ListPackages {
		if err := r.list(ctx, "List installed packages"); err != nil {
			return err
		}
	}
	if plan.Sideload {
		if err := r.sideloadAll(ctx, plan.Root); err != nil {
			return err
		}
	}
	if plan.StartupApp != "" {
		if err := r.setStartup(ctx, plan.StartupApp); err != nil {
			return err
		}
	}
	if plan.Reboot {
		err := r.step("Reboot device", func() (string, error) {
			if err := r.d.Device.RebootDevice(ctx); err != nil {
				return "", err
			}
			r.report.Rebooted = true
			return "restart requested", nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// step reports name as in progress, runs fn and reports the outcome.
// fn returns the message for the final step event.
func (r *run) step(name string, fn func() (string, error)) error {
	r.n++
	s := Step{Number: r.n, Name: name, Status: StatusInProgress}
	r.onStep(s)
	r.log.Debug("Deploy step started", zap.Int("step", s.Number), zap.String("name", name))

	msg, err := fn()
	if err != nil {
		s.Status = StatusFailed
		s.Message = iotapi.GetShortErrorMessage(err)
		r.finish(s)
		return fmt.Errorf("%s: %w", name, err)
	}

	s.Status = StatusSuccess
	s.Message = msg
	r.finish(s)
	return nil
}

func (r *run) skip(name, message string) {
	r.n++
	r.finish(Step{Number: r.n, Name: name, Status: StatusSkipped, Message: message})
}

func (r *run) finish(s Step) {
	r.report.Steps = append(r.report.Steps, s)
	r.onStep(s)
	r.log.Debug("Deploy step finished",
		zap.Int("step", s.Number),
		zap.String("name", s.Name),
		zap.String("status", s.Status),
		zap.String("message", s.Message),
	)
}

func (r *run) list(ctx context.Context, name string) error {
	return r.step(name, func() (string, error) {
		pkgs, err := r.d.Device.ListInstalledPackages(ctx)
		if err != nil {
			return "", err
		}
		r.report.Packages = pkgs
		return fmt.Sprintf("%d packages", len(pkgs)), nil
	})
}

func (r *run) sideloadAll(ctx context.Context, root string) error {
	var files PackageFiles
	err := r.step("Scan "+root, func() (string, error) {
		var err error
		files, err = FindPackageFiles(root)
		if err != nil {
			return "", err
		}
		// validate every app file name before touching the device
		for _, app := range files.Apps {
			if _, err := AppNameFromFile(app); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("%d dependencies, %d apps", len(files.Dependencies), len(files.Apps)), nil
	})
	if err != nil {
		return err
	}
	if files.Empty() {
		return nil
	}

	if len(files.Apps) > 0 {
		if err := r.list(ctx, "Check for previous versions"); err != nil {
			return err
		}
		for _, app := range files.Apps {
			if err := r.removePrevious(ctx, app); err != nil {
				return err
			}
		}
	}

	for _, dep := range files.Dependencies {
		if err := r.sideload(ctx, "Sideload dependency ", dep); err != nil {
			return err
		}
		r.report.Dependencies = append(r.report.Dependencies, dep)
	}
	for _, app := range files.Apps {
		if err := r.sideload(ctx, "Sideload ", app); err != nil {
			return err
		}
		r.report.Apps = append(r.report.Apps, app)
	}
	return nil
}

func (r *run) removePrevious(ctx context.Context, file string) error {
	appName, _ := AppNameFromFile(file)
	installed, ok := iotapi.FindPackageByName(r.report.Packages, appName)
	if !ok {
		return nil
	}
	return r.step("Remove previous "+appName, func() (string, error) {
		if err := r.d.Device.RemovePackage(ctx, installed); err != nil {
			return "", err
		}
		r.report.Removed = append(r.report.Removed, installed)
		return installed.FullName, nil
	})
}

func (r *run) sideload(ctx context.Context, prefix, file string) error {
	name := prefix + filepath.Base(file)
	return r.step(name, func() (string, error) {
		start := time.Now()
		fn := func(ctx context.Context) error {
			return r.d.Device.SideloadPackage(ctx, file)
		}
		var err error
		if r.d.Wait != nil {
			err = r.d.Wait(ctx, "Installing "+filepath.Base(file), fn)
		} else {
			err = fn(ctx)
		}
		if err != nil {
			return "", err
		}
		return time.Since(start).Round(time.Second).String(), nil
	})
}

// setStartup re-lists the device, since a sideload earlier in the run may
// have changed what is installed. An app that is not installed is reported
// as a skipped step, not an error.
func (r *run) setStartup(ctx context.Context, appName string) error {
	name := "Set startup app " + appName
	if err := r.list(ctx, "Find "+appName); err != nil {
		return err
	}

	pkg, ok := iotapi.FindPackageByName(r.report.Packages, appName)
	if !ok {
		r.report.StartupNotFound = true
		r.skip(name, "not installed on the device")
		return nil
	}

	return r.step(name, func() (string, error) {
		if err := r.d.Device.SetDefaultStartupApp(ctx, pkg); err != nil {
			return "", err
		}
		r.report.StartupApp = &pkg
		return pkg.RelativeID, nil
	})
}
