// Package config manages the winiotctl device registry.
//
// The registry is a YAML file that maps short aliases to device addresses and
// holds CLI preferences such as the default username and sideload timeout. The
// file follows OS-specific conventions for its location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/winiotctl/config.yaml or $HOME/.config/winiotctl/config.yaml
//   - macOS: $HOME/.config/winiotctl/config.yaml
//   - Windows: %LOCALAPPDATA%\winiotctl\config.yaml
//
// # File Format
//
//	version: 1
//	devices:
//	  kiosk:
//	    address: 192.168.1.20
//	    username: Administrator
//	    default_app: MyKioskApp
//	preferences:
//	  default_username: Administrator
//	  sideload_timeout: 10m0s
//	  poll_interval: 5s
//	  discover_timeout: 5s
//
// # Security
//
// Device Portal passwords are never written to the registry. They come from
// the --password flag or the WINIOTCTL_PASSWORD environment variable.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.AddDevice("kiosk", "192.168.1.20", ""); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and go through a temp file and rename.
package config
