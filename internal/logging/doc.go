// Package logging provides structured logging for winiotctl.
//
// This package wraps a zap logger that is silent by default, so CLI output
// stays clean unless the user asks for diagnostics.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Every device request, install poll transitions, dumps of bodies that failed to parse
//   - Info: Completed operations (package removed, package installed, reboot requested)
//   - Warn: Device requests answered with an error status
//   - Error: Failures the CLI reports to the user
//
// # Configuration
//
// Set WINIOTCTL_LOG_LEVEL to enable output, then initialize at startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Logs are written to stderr in console format so they never mix with command
// output such as `winiotctl ls --format json`.
//
// # Device Logging
//
// The device client logs through these helpers:
//
//	logging.LogHTTPRequest(log, "GET", "/api/appx/packagemanager/packages", 200, 5120, elapsed)
//	logging.LogRawBytes(log, "unparseable package listing", body)
//
// LogRawBytes only does work when debug logging is enabled.
package logging
