package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Device represents a Windows Device Portal instance found on the network
type Device struct {
	// Name is the mDNS instance name, normally the device name (e.g., "minwinpc")
	Name string

	// Hostname is the mDNS hostname (e.g., "minwinpc.local.")
	Hostname string

	// IP is the device address, IPv4 when one was advertised
	IP string

	// Port is the advertised Device Portal port (typically 8080)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Name, d.Hostname, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)))
}

// BaseURL returns the Device Portal base URL
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// ShortHostname returns the hostname without the ".local." suffix
func (d *Device) ShortHostname() string {
	h := strings.TrimSuffix(d.Hostname, ".")
	return strings.TrimSuffix(h, ".local")
}

// Matches reports whether name refers to this device: its instance name,
// hostname (with or without ".local") or IP, ignoring case.
func (d *Device) Matches(name string) bool {
	name = strings.TrimSuffix(name, ".")
	return strings.EqualFold(name, d.Name) ||
		strings.EqualFold(name, d.ShortHostname()) ||
		strings.EqualFold(name, strings.TrimSuffix(d.Hostname, ".")) ||
		name == d.IP
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
