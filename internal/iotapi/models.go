package iotapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// PackageDescriptor describes one application package installed on the device.
// It is built from a single listing response and never cached: device state
// can change between calls, so query again rather than reuse an old value.
type PackageDescriptor struct {
	// FullName is the unique installed-package identifier, e.g.
	// IoTCoreDefaultApp_1.0.1702.21000_arm__1w720vyc4ccym.
	// Removal and sideload addressing use this field.
	FullName string `json:"full_name"`

	// Name is the short package name, e.g. IoTCoreDefaultApp. Not unique.
	Name string `json:"name"`

	// RelativeID identifies the app entry point, e.g.
	// IoTCoreDefaultApp_1w720vyc4ccym!App. The startup endpoint only accepts this.
	RelativeID string `json:"relative_id"`

	// CanUninstall is the device-reported removability flag.
	CanUninstall bool `json:"can_uninstall"`
}

// String returns a one-line summary of the package
func (p PackageDescriptor) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.FullName)
}

// StartupCandidate is one entry of the default-app listing.
type StartupCandidate struct {
	RelativeID string `json:"relative_id"`
	IsStartup  bool   `json:"is_startup"`
}

// DefaultAppInfo is the parsed default-app listing.
type DefaultAppInfo struct {
	// DefaultApp is the relative id of the current startup app, if reported.
	DefaultApp string             `json:"default_app"`
	Candidates []StartupCandidate `json:"candidates"`
}

// Startup returns the candidate currently flagged as startup app, if any.
func (d *DefaultAppInfo) Startup() (StartupCandidate, bool) {
	return lo.Find(d.Candidates, func(c StartupCandidate) bool { return c.IsStartup })
}

// InstallState is the state of the sideload poller.
type InstallState int

const (
	StatePolling InstallState = iota
	StateSucceeded
	StateFailed
	StateTimedOut
	StateCancelled
)

// String returns the state name as used in logs
func (s InstallState) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("InstallState(%d)", s)
	}
}

// Terminal reports whether the poller stops in this state.
func (s InstallState) Terminal() bool {
	return s != StatePolling
}

// flexBool decodes JSON booleans the way the device API emits them: as real
// booleans, as strings ("True", "false") or occasionally as numbers.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("null is not a boolean")
	}

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid boolean string %q: %w", s, err)
		}
		*b = flexBool(parsed)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = n != 0
		return nil
	}

	return fmt.Errorf("cannot decode %s as boolean", string(data))
}

// installedPackageEntry is one InstalledPackages element. Pointer fields let
// the decoder tell a missing field from a zero value.
type installedPackageEntry struct {
	PackageFullName   *string   `json:"PackageFullName"`
	Name              *string   `json:"Name"`
	PackageRelativeID *string   `json:"PackageRelativeId"`
	CanUninstall      *flexBool `json:"CanUninstall"`
}

// descriptor converts the entry, reporting the first missing field.
func (e *installedPackageEntry) descriptor() (PackageDescriptor, error) {
	switch {
	case e.PackageFullName == nil:
		return PackageDescriptor{}, fmt.Errorf("missing PackageFullName")
	case e.Name == nil:
		return PackageDescriptor{}, fmt.Errorf("missing Name")
	case e.PackageRelativeID == nil:
		return PackageDescriptor{}, fmt.Errorf("missing PackageRelativeId")
	case e.CanUninstall == nil:
		return PackageDescriptor{}, fmt.Errorf("missing CanUninstall")
	}
	return PackageDescriptor{
		FullName:     *e.PackageFullName,
		Name:         *e.Name,
		RelativeID:   *e.PackageRelativeID,
		CanUninstall: bool(*e.CanUninstall),
	}, nil
}

// defaultAppEntry is one AppPackages element of the default-app listing.
//
// The device reports the relative id under "PackageFullName" in this endpoint
// only. This is how the Device Portal behaves on every known build, see
// urls.DefaultAppFieldQuirk; do not map it to PackageRelativeId.
type defaultAppEntry struct {
	PackageFullName *string   `json:"PackageFullName"`
	IsStartup       *flexBool `json:"IsStartup"`
}

// installStateResponse is the body of a 200 install-state poll.
type installStateResponse struct {
	Success  *flexBool
	Reason   string
	CodeText string
}

// parseInstallState extracts the Success flag. ok is false when the body
// does not carry a usable boolean, in which case the poller retries.
func parseInstallState(body []byte) (state installStateResponse, ok bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return state, false
	}

	successRaw, found := raw["Success"]
	if !found {
		return state, false
	}
	var success flexBool
	if err := json.Unmarshal(successRaw, &success); err != nil {
		return state, false
	}
	state.Success = &success

	// Reason and CodeText are informational only
	_ = json.Unmarshal(raw["Reason"], &state.Reason)
	_ = json.Unmarshal(raw["CodeText"], &state.CodeText)
	state.CodeText = strings.TrimSpace(state.CodeText)

	return state, true
}

// FindPackagesByName returns every package whose Name contains name, in
// listing order.
func FindPackagesByName(pkgs []PackageDescriptor, name string) []PackageDescriptor {
	return lo.Filter(pkgs, func(p PackageDescriptor, _ int) bool {
		return strings.Contains(p.Name, name)
	})
}

// FindPackageByName returns the first package whose Name contains name.
func FindPackageByName(pkgs []PackageDescriptor, name string) (PackageDescriptor, bool) {
	return lo.Find(pkgs, func(p PackageDescriptor) bool {
		return strings.Contains(p.Name, name)
	})
}
