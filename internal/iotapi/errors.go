package iotapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/winiotctl/internal/urls"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, DNS, unreachable)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTransport indicates the device answered with a non-2xx status
	ErrTypeTransport
	// ErrTypeProtocol indicates a response body that does not match the expected contract
	ErrTypeProtocol
	// ErrTypePolicy indicates an operation forbidden by a server-reported flag
	ErrTypePolicy
	// ErrTypeVerification indicates a write succeeded but the read-back check failed
	ErrTypeVerification
	// ErrTypeTimeout indicates the install poll ran past its deadline
	ErrTypeTimeout
	// ErrTypeInstall indicates the device reported the install as failed
	ErrTypeInstall
	// ErrTypeCancelled indicates the caller cancelled the operation
	ErrTypeCancelled
	// ErrTypeConfig indicates an invalid client setting
	ErrTypeConfig
	// ErrTypeIO indicates a local file could not be read
	ErrTypeIO
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypePolicy:
		return "Policy Error"
	case ErrTypeVerification:
		return "Verification Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeInstall:
		return "Install Error"
	case ErrTypeCancelled:
		return "Cancelled"
	case ErrTypeConfig:
		return "Config Error"
	case ErrTypeIO:
		return "I/O Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while talking to a device
type DeviceError struct {
	Type           ErrorType           // Category of error
	Op             string              // Operation that failed (e.g. "list packages")
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (transport errors only)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // Device address (for context)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString(": ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error returned by the HTTP client and
// returns a more specific DeviceError. Context cancellation is reported as
// ErrTypeCancelled rather than a network failure.
func ClassifyNetworkError(err error, address string) *DeviceError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &DeviceError{
			Type:    ErrTypeCancelled,
			Message: "operation cancelled",
			Err:     err,
			Address: address,
		}
	}

	if os.IsTimeout(err) {
		return &DeviceError{
			Type:           ErrTypeNetwork,
			Message:        "request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        address,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DeviceError{
			Type:           ErrTypeNetwork,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Address:        address,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "device refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Address:        address,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Address:        address,
			}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &DeviceError{
				Type:           ErrTypeNetwork,
				Message:        "network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Address:        address,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, address)
	}

	return &DeviceError{
		Type:           ErrTypeNetwork,
		Message:        "network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        address,
	}
}

// NewTransportError creates an error for a non-2xx response
func NewTransportError(op string, statusCode int) *DeviceError {
	return &DeviceError{
		Type:       ErrTypeTransport,
		Op:         op,
		Message:    fmt.Sprintf("unexpected status %d %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
	}
}

// NewProtocolError creates an error for a response that breaks the API contract
func NewProtocolError(op, message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeProtocol,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewPolicyError creates an error for an operation the device forbids
func NewPolicyError(op, message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypePolicy,
		Op:      op,
		Message: message,
	}
}

// NewVerificationError creates an error for a failed read-back check
func NewVerificationError(op, message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeVerification,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewConfigError creates an error for an invalid client setting
func NewConfigError(message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeConfig,
		Message: message,
	}
}

func isType(err error, types ...ErrorType) bool {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return false
	}
	for _, t := range types {
		if devErr.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError checks if an error is a network-level error
func IsNetworkError(err error) bool { return isType(err, ErrTypeNetwork) }

// IsTransportError checks if an error is a non-2xx response error
func IsTransportError(err error) bool { return isType(err, ErrTypeTransport) }

// IsProtocolError checks if an error is a response contract error
func IsProtocolError(err error) bool { return isType(err, ErrTypeProtocol) }

// IsPolicyError checks if an error is a policy error
func IsPolicyError(err error) bool { return isType(err, ErrTypePolicy) }

// IsVerificationError checks if an error is a verification error
func IsVerificationError(err error) bool { return isType(err, ErrTypeVerification) }

// IsTimeoutError checks if an error is an install poll timeout
func IsTimeoutError(err error) bool { return isType(err, ErrTypeTimeout) }

// IsInstallError checks if the device reported a failed install
func IsInstallError(err error) bool { return isType(err, ErrTypeInstall) }

// IsCancelled checks if the operation was cancelled by the caller
func IsCancelled(err error) bool { return isType(err, ErrTypeCancelled) }

// IsConfigError checks if an error is a config error
func IsConfigError(err error) bool { return isType(err, ErrTypeConfig) }

// IsAuthError checks if the device rejected the credentials
func IsAuthError(err error) bool {
	return IsTransportError(err) && StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by a transport error, or 0
func StatusCode(err error) int {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.StatusCode
	}
	return 0
}

// Chain returns err and all of its causes, outermost first.
// Joined errors are flattened depth-first.
func Chain(err error) []error {
	var chain []error
	stack := []error{err}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for cur != nil {
			chain = append(chain, cur)
			if joined, ok := cur.(interface{ Unwrap() []error }); ok {
				errs := joined.Unwrap()
				for i := len(errs) - 1; i >= 0; i-- {
					stack = append(stack, errs[i])
				}
				break
			}
			cur = errors.Unwrap(cur)
		}
	}
	return chain
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch devErr.Type {
	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}
		switch devErr.NetworkSubtype {
		case NetworkErrorTimeout:
			hint = append(hint, "The device did not respond in time.",
				"Troubleshooting:",
				"  • Check that the device is powered on and booted",
				"  • Large packages take longer to upload; raise the request timeout")
		case NetworkErrorConnectionRefused:
			hint = append(hint, "The device refused the connection.",
				"Troubleshooting:",
				"  • Ensure Windows Device Portal is enabled on the device",
				"  • The portal listens on port 8080 by default")
		case NetworkErrorDNS:
			hint = append(hint, "Could not resolve the device hostname.",
				"Troubleshooting:",
				"  • Use the IP address instead of the hostname",
				"  • Try 'winiotctl scan' to discover the device")
		case NetworkErrorHostUnreachable, NetworkErrorNetworkUnreachable:
			hint = append(hint, "The device is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the device address is correct",
				"  • Check that you're on the same network as the device")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the device is powered on")
		}
		return strings.Join(hint, "\n")

	case ErrTypeTransport:
		switch {
		case devErr.StatusCode == http.StatusUnauthorized:
			return strings.Join([]string{
				"Authentication failed.",
				"Troubleshooting:",
				"  • The factory credentials are Administrator / p@ssw0rd",
				"  • Check the password set in IoT Dashboard",
			}, "\n")
		case devErr.StatusCode >= 500:
			return strings.Join([]string{
				fmt.Sprintf("The device returned an error (HTTP %d).", devErr.StatusCode),
				"Troubleshooting:",
				"  • Check that the package exists on the device ('winiotctl ls')",
				"  • Try rebooting the device",
			}, "\n")
		}
		return fmt.Sprintf("The device returned HTTP error %d. Check the request parameters.", devErr.StatusCode)

	case ErrTypeProtocol:
		return strings.Join([]string{
			"The device's response did not match the expected format.",
			"This may indicate an unsupported OS build.",
			"Run with WINIOTCTL_LOG_LEVEL=debug to see the raw response.",
			"API reference: " + urls.DevicePortalAPI,
		}, "\n")

	case ErrTypePolicy:
		return "The device does not allow this operation on the selected package."

	case ErrTypeVerification:
		return strings.Join([]string{
			"The device accepted the change but did not report it afterwards.",
			"Troubleshooting:",
			"  • Check the package is a startup-capable app ('winiotctl startup --show')",
			"  • Startup app settings: " + urls.DevicePortalIoT,
		}, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"The install did not finish before the deadline.",
			"Troubleshooting:",
			"  • Increase --timeout for large packages",
			"  • The install may still complete; check 'winiotctl ls'",
		}, "\n")

	case ErrTypeInstall:
		return strings.Join([]string{
			"The device's package manager rejected the package.",
			"Troubleshooting:",
			"  • Check the package architecture matches the device",
			"  • Sideload missing dependencies first",
			"  • Check the package is signed with a trusted certificate",
			"  • Packaging requirements: " + urls.Sideloading,
		}, "\n")

	case ErrTypeIO:
		return "The package file could not be read. Check the path and permissions."

	case ErrTypeConfig:
		return "A client setting is invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		return err.Error()
	}

	switch devErr.Type {
	case ErrTypeNetwork:
		switch devErr.NetworkSubtype {
		case NetworkErrorTimeout:
			return "Device not responding (timeout)"
		case NetworkErrorConnectionRefused:
			return "Device refused connection - is Device Portal enabled?"
		case NetworkErrorDNS:
			return "Cannot resolve device hostname"
		case NetworkErrorHostUnreachable:
			return "Device unreachable - check network connection"
		default:
			return "Network error - check connection"
		}
	case ErrTypeTransport:
		if devErr.StatusCode == http.StatusUnauthorized {
			return "Authentication failed - check credentials"
		}
		return fmt.Sprintf("Device error (HTTP %d)", devErr.StatusCode)
	case ErrTypeProtocol:
		return "Unexpected device response"
	case ErrTypeTimeout:
		return "Install timed out"
	case ErrTypeInstall:
		return "Install failed on device"
	case ErrTypeCancelled:
		return "Cancelled"
	default:
		return devErr.Message
	}
}
