// Package urls provides centralized constants for the external documentation
// referenced in help text, troubleshooting output and code comments.
//
// Usage:
//
//	import "github.com/muurk/winiotctl/internal/urls"
//
//	fmt.Printf("Endpoint reference: %s\n", urls.DevicePortalAPI)
package urls
