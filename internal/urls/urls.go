package urls

// Microsoft documentation for the Device Portal and IoT Core deployment.

// DevicePortalAPI is the Device Portal core REST API reference, which lists the
// package manager, app and control endpoints the client calls.
const DevicePortalAPI = "https://learn.microsoft.com/en-us/windows/uwp/debug-test-perf/device-portal-api-core"

// DevicePortalIoT documents the IoT-specific endpoints, including the
// default startup app.
const DevicePortalIoT = "https://learn.microsoft.com/en-us/windows/iot-core/manage-your-device/deviceportal"

// Sideloading explains app packages, dependency packages and signing
// requirements for installs outside the Store.
const Sideloading = "https://learn.microsoft.com/en-us/windows/iot-core/develop-your-app/appdeployment"

// DefaultAppFieldQuirk is the forum report confirming that the default-app
// listing returns the relative id under "PackageFullName".
const DefaultAppFieldQuirk = "https://social.msdn.microsoft.com/Forums/en-US/8984391b-da0a-4882-bf05-72f5fff90e0f/msiot-api-default-app-returns-wrong-property-name?forum=WindowsIoT"
