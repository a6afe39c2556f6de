package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/winiotctl/internal/config"
	"github.com/muurk/winiotctl/internal/discovery"
	"github.com/muurk/winiotctl/internal/iotapi"
	"github.com/muurk/winiotctl/internal/logging"
	"github.com/muurk/winiotctl/internal/ui"
)

// PasswordEnvVar supplies the Device Portal password when -p is not given
const PasswordEnvVar = "WINIOTCTL_PASSWORD"

// Connection flags (persistent on root)
var (
	deviceTarget    string
	username        string
	password        string
	sideloadTimeout time.Duration
	pollInterval    time.Duration
	outputFormat    string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&deviceTarget, "device", "d", "", "Device alias, IP address or hostname (default: discover)")
	flags.StringVar(&deviceTarget, "ip4", "", "Alias of --device")
	flags.StringVarP(&username, "username", "u", config.DefaultUsername, "Device Portal username")
	flags.StringVarP(&password, "password", "p", "", "Device Portal password (or set "+PasswordEnvVar+")")
	flags.DurationVarP(&sideloadTimeout, "timeout", "t", iotapi.DefaultSideloadTimeout, "How long to wait for each package install")
	flags.DurationVar(&pollInterval, "poll-interval", iotapi.DefaultPollInterval, "Delay between install state polls")
	flags.StringVar(&outputFormat, "format", "table", "Output format (table, json)")
}

func validateFormat() error {
	switch outputFormat {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("invalid --format %q: expected table or json", outputFormat)
	}
}

func jsonOutput() bool {
	return outputFormat == "json"
}

// target is the device a command talks to
type target struct {
	alias    string // registry alias, empty if the device is not registered
	address  string
	client   *iotapi.Client
	registry *config.Registry
}

// Label returns the alias and address for headers
func (t *target) Label() string {
	if t.alias != "" {
		return fmt.Sprintf("%s (%s)", t.alias, t.address)
	}
	return t.address
}

// touch records a successful contact in the registry
func (t *target) touch() {
	if t.alias == "" {
		return
	}
	t.registry.UpdateDeviceLastSeen(t.alias)
	t.save()
}

func (t *target) save() {
	if err := t.registry.Save(); err != nil {
		logging.Warn("Failed to save registry", zap.Error(err))
	}
}

// connect resolves the device and builds a client. Settings are taken from
// flags, then the environment, then the registry, then built-in defaults.
func connect(cmd *cobra.Command) (*target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	t := &target{registry: reg}
	var device *config.Device

	if deviceTarget != "" {
		t.alias, device = reg.Resolve(deviceTarget)
		if device != nil {
			t.address = device.Address
		} else {
			t.address = deviceTarget
		}
	} else {
		t.address, err = discoverAddress(cmd.Context(), reg.Preferences.DiscoverTimeout)
		if err != nil {
			return nil, err
		}
		host, _, _ := net.SplitHostPort(t.address)
		t.alias, device = reg.Resolve(host)
	}

	cfg := iotapi.Config{
		Address:  t.address,
		Username: username,
		Password: password,
	}
	if !cmd.Flags().Changed("username") {
		cfg.Username = reg.Username(device)
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(PasswordEnvVar)
	}
	if cfg.Password == "" {
		if cfg.Password, err = promptPassword(cfg.Username, t.address); err != nil {
			return nil, err
		}
	}

	cfg.SideloadTimeout = durationSetting(cmd, "timeout", sideloadTimeout, reg.Preferences.SideloadTimeout)
	cfg.PollInterval = durationSetting(cmd, "poll-interval", pollInterval, reg.Preferences.PollInterval)

	t.client, err = iotapi.NewClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	logging.Debug("Target resolved",
		zap.String("alias", t.alias),
		zap.String("base_url", t.client.BaseURL),
		zap.String("username", cfg.Username),
		zap.Duration("sideload_timeout", t.client.SideloadTimeout()),
		zap.Duration("poll_interval", t.client.PollInterval()),
	)
	return t, nil
}

// durationSetting picks the flag value if set, else a positive preference,
// else zero so the client default applies.
func durationSetting(cmd *cobra.Command, flag string, value, preference time.Duration) time.Duration {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if preference > 0 {
		return preference
	}
	return 0
}

func promptPassword(user, address string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", iotapi.NewConfigError("no password given: use --password or set " + PasswordEnvVar)
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", user, address)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

// discoverAddress scans for Device Portal instances and returns the address
// of the only one found.
func discoverAddress(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}
	fmt.Fprintf(os.Stderr, "No device specified, scanning for %s...\n", timeout)

	devices, err := discovery.ScanForDevices(ctx, timeout)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no devices found: use --device to specify one")
	case 1:
		d := devices[0]
		fmt.Fprintf(os.Stderr, "Found %s\n\n", d)
		return net.JoinHostPort(d.IP, strconv.Itoa(d.Port)), nil
	default:
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, "  "+d.String())
		}
		return "", fmt.Errorf("%d devices found, use --device to pick one:\n%s", len(devices), strings.Join(names, "\n"))
	}
}

// printer writes styled output to stdout
func printer() *ui.Printer {
	return ui.NewPrinter(os.Stdout)
}
