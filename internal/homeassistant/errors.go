package homeassistant

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

	"github.com/muurk/vtdash/internal/urls"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates Home Assistant refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates the access token was rejected
	ErrTypeAuth
	// ErrTypeHTTP indicates an unexpected HTTP status code
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every provider operation that fails
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether repeating the request may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// classifyNetworkError turns a transport error into a typed Error
func classifyNetworkError(message string, err error) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		return &Error{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Type: ErrTypeDNS, Message: message, Err: err, Retryable: false}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

func newAuthError(message string) *Error {
	return &Error{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

func newHTTPError(statusCode int, message string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500, // Server errors are retryable
	}
}

func newParseError(message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Err: err, Retryable: false}
}

func typeOf(err error) (ErrorType, bool) {
	var haErr *Error
	if errors.As(err, &haErr) {
		return haErr.Type, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeAuth
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeParse
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var haErr *Error
	if errors.As(err, &haErr) {
		return haErr.Retryable
	}
	return false
}

// TroubleshootingHints returns advice lines for an error, for the check command
func TroubleshootingHints(err error) []string {
	var haErr *Error
	if !errors.As(err, &haErr) {
		return []string{"An unexpected error occurred. Please try again."}
	}

	switch haErr.Type {
	case ErrTypeTimeout:
		return []string{
			"Home Assistant did not respond in time.",
			"Check that the instance is running and not overloaded",
			"Verify the URL points at the right host and port",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"Home Assistant refused the connection.",
			"Verify the port in homeassistant.url (default is 8123)",
			"Check that the http integration is enabled",
		}
	case ErrTypeDNS:
		return []string{
			"Could not resolve the Home Assistant hostname.",
			"Use the IP address instead of the hostname",
			"Try 'vtdash discover' to find instances on the local network",
		}
	case ErrTypeAuth:
		return []string{
			"The access token was rejected.",
			"Create a long-lived access token from your Home Assistant profile page",
			"Set it as homeassistant.token or in VTDASH_HASS_TOKEN",
			"See " + urls.AccessTokens,
		}
	case ErrTypeHTTP:
		if haErr.StatusCode == http.StatusNotFound {
			return []string{
				"The REST API was not found.",
				"Make sure the api integration is enabled in configuration.yaml",
				"See " + urls.APIIntegration,
			}
		}
		return []string{fmt.Sprintf("Home Assistant returned HTTP %d.", haErr.StatusCode)}
	case ErrTypeParse:
		return []string{
			"Failed to parse the Home Assistant response.",
			"Check that homeassistant.url points at Home Assistant and not a proxy login page",
		}
	default:
		return []string{
			"Network communication failed.",
			"Check your network connection",
		}
	}
}

// ShortMessage returns a concise one-line description of an error
func ShortMessage(err error) string {
	var haErr *Error
	if !errors.As(err, &haErr) {
		return err.Error()
	}

	switch haErr.Type {
	case ErrTypeTimeout:
		return "Home Assistant not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Home Assistant refused connection"
	case ErrTypeDNS:
		return "Cannot resolve Home Assistant hostname"
	case ErrTypeAuth:
		return "Authentication failed - check token"
	case ErrTypeHTTP:
		return fmt.Sprintf("Home Assistant error (HTTP %d)", haErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse Home Assistant response"
	default:
		return strings.TrimSpace("Network error - " + haErr.Message)
	}
}
