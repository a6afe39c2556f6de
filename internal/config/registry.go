package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "winiotctl"
	configFile = "config.yaml"
)

var (
	// process-wide registry, read from disk on first use
	loaded     *Registry
	loadedOnce sync.Once
	loadedErr  error

	// serializes writes of the config file
	fileMutex sync.Mutex
)

// fileHeader is written above the YAML so users editing the file by hand
// know where passwords come from.
const fileHeader = `# winiotctl device registry
# Devices are stored under the alias you pass to --device.
#
# Device Portal passwords are never written here.
# Pass --password or set WINIOTCTL_PASSWORD.
#
# Location: %s

`

// GetConfigDir returns the directory holding the device registry:
//   - Windows: %LOCALAPPDATA%\winiotctl, where most IoT Core developers run
//     Visual Studio
//   - everywhere else: $XDG_CONFIG_HOME/winiotctl, defaulting to
//     ~/.config/winiotctl (macOS included)
func GetConfigDir() (string, error) {
	base, err := configBase()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

func configBase() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", fmt.Errorf("cannot locate the registry: neither LOCALAPPDATA nor USERPROFILE is set")
		}
		return filepath.Join(profile, "AppData", "Local"), nil
	}

	if runtime.GOOS != "darwin" {
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the registry: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// GetConfigPath returns the path of the registry file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the registry stored at GetConfigPath. The file is
// read once per process; every caller shares the same *Registry, so a device
// touched by one command is saved with the others' changes.
func LoadRegistry() (*Registry, error) {
	loadedOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			loadedErr = fmt.Errorf("failed to locate registry: %w", err)
			return
		}
		loaded, loadedErr = LoadRegistryFrom(path)
	})
	return loaded, loadedErr
}

// LoadRegistryFrom reads a registry from path. A missing file is not an
// error: nobody has run 'winiotctl devices add' yet, so an empty registry
// with default preferences is returned.
func LoadRegistryFrom(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	if reg.Version != 1 {
		return nil, fmt.Errorf("registry %s: unsupported version %d (expected 1)", path, reg.Version)
	}

	if reg.Devices == nil {
		reg.Devices = make(map[string]*Device)
	}
	if reg.Preferences == nil {
		reg.Preferences = defaultPreferences()
	}
	for alias, device := range reg.Devices {
		if device == nil || device.Address == "" {
			return nil, fmt.Errorf("registry %s: device %q has no address", path, alias)
		}
	}
	return &reg, nil
}

// Save writes the registry to GetConfigPath, creating the directory
// (owner-only) on first use.
func (r *Registry) Save() error {
	dir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to locate registry: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return r.SaveTo(filepath.Join(dir, configFile))
}

// SaveTo writes the registry to path. The file is replaced by rename so an
// interrupted deploy never leaves a half-written registry behind.
func (r *Registry) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, fileHeader, path)
	buf.Write(body)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace registry %s: %w", path, err)
	}
	return nil
}
