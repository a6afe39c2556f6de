package iotapi

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// Mock credentials "user:password"
const (
	testUsername   = "user"
	testPassword   = "password"
	testAuthHeader = "Basic dXNlcjpwYXNzd29yZA=="
)

// Listing captured from a Raspberry Pi running build 15063, trimmed to the
// fields the client reads plus a few it ignores.
const mockPackagesResponse = `{"InstalledPackages":[
{"AppListEntry":0,"CanUninstall":true,"Name":"Search","PackageFamilyName":"Microsoft.Windows.Cortana","PackageFullName":"Microsoft.Windows.Cortana_1.8.12.15063_neutral_neutral_cw5n1h2txyewy","PackageOrigin":2,"PackageRelativeId":"Microsoft.Windows.Cortana_cw5n1h2txyewy!CortanaUI","Version":{"Build":12,"Major":1,"Minor":8,"Revision":15063}},
{"AppListEntry":0,"CanUninstall":true,"Name":"IoTUAPOOBE","PackageFamilyName":"IoTUAPOOBE","PackageFullName":"IoTUAPOOBE_1.0.0.0_neutral__cw5n1h2txyewy","PackageOrigin":2,"PackageRelativeId":"IoTUAPOOBE_cw5n1h2txyewy!App"},
{"AppListEntry":0,"CanUninstall":true,"Name":"IoTCoreDefaultApp","PackageFamilyName":"IoTCoreDefaultApp","PackageFullName":"IoTCoreDefaultApp_1.0.1702.21000_arm__1w720vyc4ccym","PackageOrigin":5,"PackageRelativeId":"IoTCoreDefaultApp_1w720vyc4ccym!App"},
{"AppListEntry":1,"CanUninstall":false,"Name":"IoTOnboardingTask","PackageFamilyName":"IoTOnboardingTask-uwp","PackageFullName":"IoTOnboardingTask-uwp_1.0.1612.2000_arm__1w720vyc4ccym","PackageOrigin":5,"PackageRelativeId":"IoTOnboardingTask-uwp_1w720vyc4ccym!App"}
]}`

// The default-app listing puts relative ids under "PackageFullName".
const mockDefaultAppResponse = `{"DefaultApp":"IoTCoreDefaultApp_1w720vyc4ccym!App","AppPackages":[
{"IsStartup":false,"PackageFullName":"IoTCoreDefaultApp_1w720vyc4ccym!App"},
{"IsStartup":false,"PackageFullName":"IoTUAPOOBE_cw5n1h2txyewy!App"},
{"IsStartup":false,"PackageFullName":"Microsoft.Windows.Cortana_cw5n1h2txyewy!CortanaUI"},
{"IsStartup":true,"PackageFullName":"ExistingPackageRelativeId"}
]}`

const (
	mockSideloadAccepted = `{"Reason":"Deploy request accepted and being processed"}`
	mockStateSuccess     = `{"Code":0,"CodeText":"The operation completed successfully.\r\n","Reason":"Success","Success":true}`
	mockStateFailure     = `{"Code":-2147024883,"CodeText":"The data is invalid.\r\n","Reason":"error 0x8007000D: Opening the package from location notWorkingTestFile.appx failed.","Success":false}`
	mockRemoveFailure    = `{"Code":-2147023728,"CodeText":"Element not found.\r\n","Reason":"Failed to retrieve package","Success":false}`
	mockStartupFailure   = `{"ErrorCode":2147942487,"ErrorSource":"notExisting","Status":"Set Startup AppX failed"}`
)

// stateReply is one canned answer of the install-state endpoint.
type stateReply struct {
	status int
	body   string
}

// upload is what the mock saw in a sideload request.
type upload struct {
	query    string
	formName string
	fileName string
	content  string
	partType string
}

// mockDevice emulates the Device Portal endpoints the client uses.
type mockDevice struct {
	server *httptest.Server

	mu sync.Mutex

	packagesBody   string
	defaultAppBody string
	sideloadStatus int
	sideloadBody   string

	// stateReplies are served in order; the last one repeats.
	stateReplies []stateReply
	statePolls   int

	requests []string
	uploads  []upload
	appIDs   []string
	removed  []string
}

func newMockDevice(t *testing.T) *mockDevice {
	t.Helper()

	dev := &mockDevice{
		packagesBody:   mockPackagesResponse,
		defaultAppBody: mockDefaultAppResponse,
		sideloadStatus: http.StatusAccepted,
		sideloadBody:   mockSideloadAccepted,
	}
	dev.server = httptest.NewServer(http.HandlerFunc(dev.handle))
	t.Cleanup(dev.server.Close)
	return dev
}

func (d *mockDevice) client() *Client {
	c := NewClientWithURL(d.server.URL, testUsername, testPassword)
	c.pollInterval = 10 * time.Millisecond
	c.sideloadTimeout = 2 * time.Second
	return c
}

func (d *mockDevice) requestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *mockDevice) removedPackages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.removed...)
}

func (d *mockDevice) startupAppIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.appIDs...)
}

func (d *mockDevice) requestLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func (d *mockDevice) uploaded() []upload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]upload(nil), d.uploads...)
}

func (d *mockDevice) polls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statePolls
}

func (d *mockDevice) handle(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, r.Method+" "+r.URL.RequestURI())

	if r.Header.Get("Authorization") != testAuthHeader {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()

	switch r.Method + " " + r.URL.Path {
	case "GET /api/appx/packagemanager/packages":
		writeBody(w, http.StatusOK, d.packagesBody)

	case "GET /api/app/packagemanager/state":
		d.statePolls++
		if len(d.stateReplies) == 0 {
			writeBody(w, http.StatusNotFound, `{"Reason":"No installation action was found"}`)
			return
		}
		reply := d.stateReplies[min(d.statePolls, len(d.stateReplies))-1]
		writeBody(w, reply.status, reply.body)

	case "GET /api/iot/appx/default":
		writeBody(w, http.StatusOK, d.defaultAppBody)

	case "POST /api/app/packagemanager/package":
		up := upload{query: query.Get("package")}
		if reader, err := r.MultipartReader(); err == nil {
			if part, err := reader.NextPart(); err == nil {
				data, _ := io.ReadAll(part)
				up.formName = part.FormName()
				up.fileName = part.FileName()
				up.content = string(data)
				up.partType = part.Header.Get("Content-Type")
			}
		}
		d.uploads = append(d.uploads, up)
		writeBody(w, d.sideloadStatus, d.sideloadBody)

	case "POST /api/iot/appx/default":
		appID := query.Get("appid")
		d.appIDs = append(d.appIDs, appID)
		if appID == base64.StdEncoding.EncodeToString([]byte("NotExistingPackageRelativeId")) {
			writeBody(w, http.StatusInternalServerError, mockStartupFailure)
			return
		}
		w.WriteHeader(http.StatusOK)

	case "POST /api/control/restart":
		w.WriteHeader(http.StatusOK)

	case "DELETE /api/appx/packagemanager/package":
		name := query.Get("package")
		if name == "DoesNotExist" {
			writeBody(w, http.StatusInternalServerError, mockRemoveFailure)
			return
		}
		d.removed = append(d.removed, name)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
