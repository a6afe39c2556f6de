package discovery

import (
	"testing"
)

func TestDevice_String(t *testing.T) {
	device := &Device{Name: "minwinpc", Hostname: "minwinpc.local.", IP: "192.168.1.20", Port: 8080}

	want := "minwinpc (minwinpc.local.) at 192.168.1.20:8080"
	if got := device.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		ip   string
		port int
		want string
	}{
		{"192.168.1.20", 8080, "http://192.168.1.20:8080"},
		{"fe80::1", 8080, "http://[fe80::1]:8080"},
	}

	for _, tt := range tests {
		device := &Device{IP: tt.ip, Port: tt.port}
		if got := device.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %v, want %v", got, tt.want)
		}
	}
}

func TestDevice_Matches(t *testing.T) {
	device := &Device{Name: "Kiosk-01", Hostname: "kiosk-01.local.", IP: "10.0.0.5"}

	for _, name := range []string{"kiosk-01", "KIOSK-01", "kiosk-01.local", "kiosk-01.local.", "10.0.0.5"} {
		if !device.Matches(name) {
			t.Errorf("Matches(%q) = false", name)
		}
	}
	for _, name := range []string{"kiosk", "10.0.0.50", ""} {
		if device.Matches(name) {
			t.Errorf("Matches(%q) = true", name)
		}
	}
}

func TestDevice_GetMetadata_NilMap(t *testing.T) {
	device := &Device{}
	if got := device.GetMetadata("any"); got != "" {
		t.Errorf("GetMetadata() with nil map = %v, want empty", got)
	}
}
