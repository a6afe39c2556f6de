package discovery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/logging"
)

const (
	// ServiceType is the mDNS service type Windows Device Portal advertises
	ServiceType = "_wdp._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the Device Portal port on IoT Core
	DefaultPort = 8080
)

// browseFunc matches zeroconf.Resolver.Browse
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// browse is replaced in tests
	browse browseFunc
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

func (s *Scanner) browser() (browseFunc, error) {
	if s.browse != nil {
		return s.browse, nil
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver.Browse, nil
}

// ScanForDevices discovers all Device Portal instances on the local network,
// sorted by name. The scan always runs for the full timeout.
func (s *Scanner) ScanForDevices(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	found := make(map[string]*Device)
	err := s.run(ctx, func(device *Device) bool {
		key := device.Name + "@" + device.IP
		if _, seen := found[key]; !seen {
			logging.Debug("Discovered device", zap.String("name", device.Name), zap.String("ip", device.IP))
			found[key] = device
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	devices := make([]*Device, 0, len(found))
	for _, d := range found {
		devices = append(devices, d)
	}
	slices.SortFunc(devices, func(a, b *Device) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.IP, b.IP)
	})
	return devices, nil
}

// WaitForDevice browses until a device matching name (instance name,
// hostname or IP) answers, or the timeout passes.
func (s *Scanner) WaitForDevice(ctx context.Context, name string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var match *Device
	err := s.run(ctx, func(device *Device) bool {
		if device.Matches(name) {
			match = device
			cancel()
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("device %s not found within %s", name, s.Timeout)
	}
	return match, nil
}

// run browses until ctx is done or visit returns true. visit is only called
// from one goroutine, and run returns after that goroutine has exited.
func (s *Scanner) run(ctx context.Context, visit func(*Device) bool) error {
	browse, err := s.browser()
	if err != nil {
		return err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if device := parseServiceEntry(entry); device != nil && visit(device) {
					return
				}
			}
		}
	}()

	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}

	// Prefer IPv4, the Device Portal binds it on every IoT Core image
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	name := entry.Instance
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSuffix(entry.HostName, "."), ".local")
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Device{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(ctx context.Context, timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices(ctx)
}
