package iotapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	client := NewClient("192.168.1.20", "Administrator", "p@ssw0rd")

	if client.BaseURL != "http://192.168.1.20:8080" {
		t.Errorf("BaseURL = %s, want http://192.168.1.20:8080", client.BaseURL)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("Administrator:p@ssw0rd"))
	if client.authorization != want {
		t.Errorf("authorization = %s, want %s", client.authorization, want)
	}

	if client.SideloadTimeout() != DefaultSideloadTimeout {
		t.Errorf("SideloadTimeout = %v, want %v", client.SideloadTimeout(), DefaultSideloadTimeout)
	}

	if client.PollInterval() != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", client.PollInterval(), DefaultPollInterval)
	}

	if client.HTTPClient == nil || client.HTTPClient.Timeout != DefaultRequestTimeout {
		t.Errorf("HTTPClient timeout should default to %v", DefaultRequestTimeout)
	}
}

func TestNewClientAddressForms(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"minwinpc", "http://minwinpc:8080"},
		{"minwinpc.local:8443", "http://minwinpc.local:8443"},
		{"fe80::1", "http://[fe80::1]:8080"},
		{"[fe80::1]:9000", "http://[fe80::1]:9000"},
	}

	for _, tt := range tests {
		if got := NewClient(tt.address, "a", "b").BaseURL; got != tt.want {
			t.Errorf("NewClient(%s).BaseURL = %s, want %s", tt.address, got, tt.want)
		}
	}
}

func TestSetRequestTimeout(t *testing.T) {
	client := NewClient("192.168.1.20", "a", "b")
	client.SetRequestTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestSetSideloadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		value   time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"positive stored verbatim", 90 * time.Second, 90 * time.Second, false},
		{"one nanosecond", 1, 1, false},
		{"zero keeps previous", 0, DefaultSideloadTimeout, true},
		{"negative keeps previous", -time.Minute, DefaultSideloadTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient("192.168.1.20", "a", "b")
			err := client.SetSideloadTimeout(tt.value)

			if (err != nil) != tt.wantErr {
				t.Fatalf("SetSideloadTimeout(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !IsConfigError(err) {
				t.Errorf("expected config error, got %v", err)
			}
			if client.SideloadTimeout() != tt.want {
				t.Errorf("SideloadTimeout = %v, want %v", client.SideloadTimeout(), tt.want)
			}
		})
	}
}

func TestSetPollInterval(t *testing.T) {
	client := NewClient("192.168.1.20", "a", "b")

	if err := client.SetPollInterval(250 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", client.PollInterval())
	}

	if err := client.SetPollInterval(-1); !IsConfigError(err) {
		t.Errorf("expected config error, got %v", err)
	}
	if client.PollInterval() != 250*time.Millisecond {
		t.Errorf("PollInterval changed to %v after invalid value", client.PollInterval())
	}
}

func TestNewClientFromConfig(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantErr      bool
		wantTimeout  time.Duration
		wantInterval time.Duration
	}{
		{
			name:         "defaults for zero values",
			cfg:          Config{Address: "10.0.0.5", Username: "u", Password: "p"},
			wantTimeout:  DefaultSideloadTimeout,
			wantInterval: DefaultPollInterval,
		},
		{
			name:         "explicit values",
			cfg:          Config{Address: "10.0.0.5", SideloadTimeout: time.Minute, PollInterval: time.Second},
			wantTimeout:  time.Minute,
			wantInterval: time.Second,
		},
		{
			name:    "missing address",
			cfg:     Config{Username: "u"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{Address: "10.0.0.5", SideloadTimeout: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative interval",
			cfg:     Config{Address: "10.0.0.5", PollInterval: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClientFromConfig(tt.cfg)
			if tt.wantErr {
				if !IsConfigError(err) {
					t.Fatalf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.BaseURL != "http://10.0.0.5:8080" {
				t.Errorf("BaseURL = %s", client.BaseURL)
			}
			if client.SideloadTimeout() != tt.wantTimeout {
				t.Errorf("SideloadTimeout = %v, want %v", client.SideloadTimeout(), tt.wantTimeout)
			}
			if client.PollInterval() != tt.wantInterval {
				t.Errorf("PollInterval = %v, want %v", client.PollInterval(), tt.wantInterval)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("minwinpc")
	if cfg.Username != DefaultUsername || cfg.SideloadTimeout != DefaultSideloadTimeout || cfg.PollInterval != DefaultPollInterval {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestEndpointEscapesValues(t *testing.T) {
	got := endpoint(pathSetDefaultApp, map[string]string{"appid": "a+b/c="})
	want := "/api/iot/appx/default?appid=a%2Bb%2Fc%3D"
	if got != want {
		t.Errorf("endpoint = %s, want %s", got, want)
	}

	got = endpoint(pathPackage, map[string]string{"package": "App_1.0.0.0_arm__abc"})
	if got != "/api/appx/packagemanager/package?package=App_1.0.0.0_arm__abc" {
		t.Errorf("endpoint = %s", got)
	}
}

func TestListInstalledPackages(t *testing.T) {
	dev := newMockDevice(t)

	pkgs, err := dev.client().ListInstalledPackages(context.Background())
	if err != nil {
		t.Fatalf("ListInstalledPackages failed: %v", err)
	}

	if len(pkgs) != 4 {
		t.Fatalf("got %d packages, want 4", len(pkgs))
	}

	want := PackageDescriptor{
		FullName:     "Microsoft.Windows.Cortana_1.8.12.15063_neutral_neutral_cw5n1h2txyewy",
		Name:         "Search",
		RelativeID:   "Microsoft.Windows.Cortana_cw5n1h2txyewy!CortanaUI",
		CanUninstall: true,
	}
	if pkgs[0] != want {
		t.Errorf("pkgs[0] = %+v, want %+v", pkgs[0], want)
	}

	if pkgs[3].CanUninstall {
		t.Error("IoTOnboardingTask should not be removable")
	}
}

func TestListInstalledPackagesSkipsMalformedEntries(t *testing.T) {
	dev := newMockDevice(t)
	dev.packagesBody = `{"InstalledPackages":[
		{"Name":"A","PackageFullName":"A_1","PackageRelativeId":"A!App","CanUninstall":true},
		{"Name":"Broken","PackageFullName":"B_1","CanUninstall":true},
		{"Name":"C","PackageFullName":"C_1","PackageRelativeId":"C!App","CanUninstall":"False"},
		"not an object",
		{"Name":"D","PackageFullName":"D_1","PackageRelativeId":"D!App","CanUninstall":null},
		{"Name":42,"PackageFullName":"E_1","PackageRelativeId":"E!App","CanUninstall":true},
		{"Name":"F","PackageFullName":"F_1","PackageRelativeId":"F!App","CanUninstall":1}
	]}`

	pkgs, err := dev.client().ListInstalledPackages(context.Background())
	if err != nil {
		t.Fatalf("ListInstalledPackages failed: %v", err)
	}

	var names []string
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "A,C,F" {
		t.Fatalf("names = %v, want [A C F]", names)
	}
	if pkgs[1].CanUninstall {
		t.Error("string \"False\" should decode as false")
	}
	if !pkgs[2].CanUninstall {
		t.Error("number 1 should decode as true")
	}
}

func TestListInstalledPackagesProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>Device Portal</html>`},
		{"missing field", `{"Packages":[]}`},
		{"null field", `{"InstalledPackages":null}`},
		{"wrong type", `{"InstalledPackages":"none"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newMockDevice(t)
			dev.packagesBody = tt.body

			_, err := dev.client().ListInstalledPackages(context.Background())
			if !IsProtocolError(err) {
				t.Errorf("expected protocol error, got %v", err)
			}
		})
	}
}

func TestListInstalledPackagesEmpty(t *testing.T) {
	dev := newMockDevice(t)
	dev.packagesBody = `{"InstalledPackages":[]}`

	pkgs, err := dev.client().ListInstalledPackages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("got %d packages, want 0", len(pkgs))
	}
}

func TestWrongCredentials(t *testing.T) {
	dev := newMockDevice(t)
	client := NewClientWithURL(dev.server.URL, testUsername, "wrong")
	ctx := context.Background()

	pkg := PackageDescriptor{FullName: "Exists", Name: "Exists", RelativeID: "ExistingPackageRelativeId", CanUninstall: true}

	operations := map[string]func() error{
		"list": func() error {
			_, err := client.ListInstalledPackages(ctx)
			return err
		},
		"remove":      func() error { return client.RemovePackage(ctx, pkg) },
		"startup":     func() error { return client.SetDefaultStartupApp(ctx, pkg) },
		"reboot":      func() error { return client.RebootDevice(ctx) },
		"default app": func() error { _, err := client.GetDefaultApp(ctx); return err },
	}

	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			err := op()
			if !IsTransportError(err) {
				t.Fatalf("expected transport error, got %v", err)
			}
			if StatusCode(err) != http.StatusUnauthorized {
				t.Errorf("StatusCode = %d, want 401", StatusCode(err))
			}
			if !IsAuthError(err) {
				t.Error("IsAuthError should be true")
			}
		})
	}
}

func TestRemovePackage(t *testing.T) {
	dev := newMockDevice(t)
	pkg := PackageDescriptor{FullName: "Exists", Name: "Exists", CanUninstall: true}

	if err := dev.client().RemovePackage(context.Background(), pkg); err != nil {
		t.Fatalf("RemovePackage failed: %v", err)
	}
	if removed := dev.removedPackages(); len(removed) != 1 || removed[0] != "Exists" {
		t.Errorf("removed = %v, want [Exists]", removed)
	}
}

func TestRemovePackageNotFound(t *testing.T) {
	dev := newMockDevice(t)
	pkg := PackageDescriptor{FullName: "DoesNotExist", Name: "DoesNotExist", CanUninstall: true}

	err := dev.client().RemovePackage(context.Background(), pkg)
	if !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", StatusCode(err))
	}
}

func TestRemovePackageNonRemovable(t *testing.T) {
	dev := newMockDevice(t)
	pkg := PackageDescriptor{FullName: "Exists", Name: "Exists", CanUninstall: false}

	err := dev.client().RemovePackage(context.Background(), pkg)
	if !IsPolicyError(err) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if !strings.Contains(err.Error(), "non-removable") {
		t.Errorf("error should mention non-removable: %v", err)
	}
	if n := dev.requestCount(); n != 0 {
		t.Errorf("policy refusal made %d requests, want 0", n)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	dev := newMockDevice(t)
	dev.defaultAppBody = `{"AppPackages":[{"IsStartup":true,"PackageFullName":"IoTCoreDefaultApp_1w720vyc4ccym!App"}]}`
	client := dev.client()
	ctx := context.Background()

	pkgs, err := client.ListInstalledPackages(ctx)
	if err != nil {
		t.Fatalf("ListInstalledPackages failed: %v", err)
	}
	pkg, ok := FindPackageByName(pkgs, "IoTCoreDefaultApp")
	if !ok {
		t.Fatal("IoTCoreDefaultApp not found")
	}

	if err := client.RemovePackage(ctx, pkg); err != nil {
		t.Fatalf("RemovePackage failed: %v", err)
	}
	if removed := dev.removedPackages(); removed[0] != "IoTCoreDefaultApp_1.0.1702.21000_arm__1w720vyc4ccym" {
		t.Errorf("removal addressed %q, want the full name", removed[0])
	}

	if err := client.SetDefaultStartupApp(ctx, pkg); err != nil {
		t.Fatalf("SetDefaultStartupApp failed: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(dev.startupAppIDs()[0])
	if err != nil {
		t.Fatalf("appid is not base64: %v", err)
	}
	if string(decoded) != "IoTCoreDefaultApp_1w720vyc4ccym!App" {
		t.Errorf("startup addressed %q, want the relative id", decoded)
	}
}

func TestRebootDevice(t *testing.T) {
	dev := newMockDevice(t)

	if err := dev.client().RebootDevice(context.Background()); err != nil {
		t.Fatalf("RebootDevice failed: %v", err)
	}
	if requests := dev.requestLog(); requests[0] != "POST /api/control/restart" {
		t.Errorf("request = %s", requests[0])
	}
}

func TestNetworkErrorIsClassified(t *testing.T) {
	dev := newMockDevice(t)
	client := dev.client()
	dev.server.Close()

	_, err := client.ListInstalledPackages(context.Background())
	if !IsNetworkError(err) {
		t.Errorf("expected network error, got %v", err)
	}
}
