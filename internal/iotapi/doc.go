// Package iotapi provides an HTTP client for the Windows Device Portal REST API
// on Windows IoT Core devices.
//
// The client authenticates every request with HTTP Basic Auth against
// http://<address>:8080 and exposes the package-management operations needed
// to deploy an app: listing installed packages, removing a package, sideloading
// a package file, choosing the startup app and rebooting.
//
// # Usage Example
//
//	client := iotapi.NewClient("192.168.1.20", "Administrator", "p@ssw0rd")
//
//	pkgs, err := client.ListInstalledPackages(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if pkg, ok := iotapi.FindPackageByName(pkgs, "IoTCoreDefaultApp"); ok {
//	    if err := client.SetDefaultStartupApp(ctx, pkg); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Package Identifiers
//
// A PackageDescriptor carries three identifiers and each endpoint accepts
// exactly one of them:
//   - FullName: removal and sideload addressing
//   - RelativeID: startup app selection (base64 encoded in the query)
//   - Name: display and lookup only, not unique
//
// Descriptors are built fresh from each listing. Device state changes between
// calls, so list again rather than hold on to old descriptors.
//
// # Sideloading
//
// SideloadPackage uploads the file and then polls the package manager state
// endpoint until the install finishes. The device answers 204 while the
// install runs and 200 with a Success flag when done. The wait is bounded by
// the client's sideload timeout (default 5 minutes, polled every 5 seconds) and
// can be cut short by cancelling the context, which is reported as
// ErrTypeCancelled rather than ErrTypeTimeout.
//
// # Default App Listing
//
// The default-app listing reports each candidate's relative id in a field
// named PackageFullName. This is the device's behaviour, not a decoding
// mistake, and SetDefaultStartupApp matches against that field when it reads
// the setting back.
//
// # Error Handling
//
// All errors are *DeviceError values, possibly wrapped with fmt.Errorf. Use the
// predicates (IsTransportError, IsPolicyError, IsTimeoutError, ...) to branch on
// the category and Chain to walk the causes:
//
//	if err := client.RemovePackage(ctx, pkg); err != nil {
//	    if iotapi.IsPolicyError(err) {
//	        // the device marks this package as system-owned
//	    }
//	    for _, cause := range iotapi.Chain(err) {
//	        fmt.Fprintln(os.Stderr, "-->", cause)
//	    }
//	}
//
// GetTroubleshootingHint and GetShortErrorMessage turn an error into advice
// suitable for a terminal.
package iotapi
