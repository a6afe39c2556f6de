package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Registry represents the entire user configuration file.
// It stores known devices under short aliases plus CLI preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by alias
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is a named Windows IoT Core device.
type Device struct {
	Address    string    `yaml:"address"`               // IP address or hostname
	Username   string    `yaml:"username,omitempty"`    // Device Portal user, overrides the default
	LastSeen   time.Time `yaml:"last_seen,omitempty"`   // Last successful contact or discovery
	DefaultApp string    `yaml:"default_app,omitempty"` // Package name last set as startup app
}

// Preferences represents application-wide user preferences.
// Zero durations mean "use the built-in default".
type Preferences struct {
	DefaultUsername string        `yaml:"default_username,omitempty"`
	SideloadTimeout time.Duration `yaml:"sideload_timeout,omitempty"`
	PollInterval    time.Duration `yaml:"poll_interval,omitempty"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout,omitempty"`
	// Passwords are NEVER stored in the config file
}

// Default preference values
const (
	DefaultUsername        = "Administrator"
	DefaultDiscoverTimeout = 5 * time.Second
)

func defaultPreferences() *Preferences {
	return &Preferences{
		DefaultUsername: DefaultUsername,
		DiscoverTimeout: DefaultDiscoverTimeout,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// GetDevice retrieves a device by alias.
// Returns nil if the alias is not registered.
func (r *Registry) GetDevice(alias string) *Device {
	return r.Devices[alias]
}

// AddDevice registers or replaces the device stored under alias.
func (r *Registry) AddDevice(alias, address, username string) error {
	if err := validateAlias(alias); err != nil {
		return err
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("device %q: address is required", alias)
	}

	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	r.Devices[alias] = &Device{
		Address:  strings.TrimSpace(address),
		Username: username,
	}
	return nil
}

// RemoveDevice deletes alias from the registry. Returns false if it was not
// registered.
func (r *Registry) RemoveDevice(alias string) bool {
	if _, ok := r.Devices[alias]; !ok {
		return false
	}
	delete(r.Devices, alias)
	return true
}

// Aliases returns the registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	aliases := lo.Keys(r.Devices)
	slices.Sort(aliases)
	return aliases
}

// Resolve maps a --device value to an address. An alias wins; otherwise a
// registered device with that address is returned; otherwise target is used
// as a literal address and the returned device is nil.
func (r *Registry) Resolve(target string) (alias string, device *Device) {
	if d, ok := r.Devices[target]; ok {
		return target, d
	}
	for _, a := range r.Aliases() {
		if r.Devices[a].Address == target {
			return a, r.Devices[a]
		}
	}
	return "", nil
}

// UpdateDeviceLastSeen records a successful contact with alias.
func (r *Registry) UpdateDeviceLastSeen(alias string) {
	if device := r.Devices[alias]; device != nil {
		device.LastSeen = time.Now()
	}
}

// SetDefaultApp records the startup app chosen for alias.
func (r *Registry) SetDefaultApp(alias, name string) {
	if device := r.Devices[alias]; device != nil {
		device.DefaultApp = name
	}
}

// Username returns the username to use for device, falling back to the
// preference and then to the factory default.
func (r *Registry) Username(device *Device) string {
	if device != nil && device.Username != "" {
		return device.Username
	}
	if r.Preferences != nil && r.Preferences.DefaultUsername != "" {
		return r.Preferences.DefaultUsername
	}
	return DefaultUsername
}

func validateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("alias is required")
	}
	if strings.ContainsAny(alias, " \t\r\n:/") {
		return fmt.Errorf("alias %q must not contain whitespace, ':' or '/'", alias)
	}
	return nil
}
