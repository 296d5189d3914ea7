package device

import (
	"errors"
	"fmt"

	"github.com/muurk/broadlink/internal/transport"
)

// Error types for device communication

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNoReply indicates the device never answered
	ErrTypeNoReply ErrorType = iota
	// ErrTypeHandshake indicates the pairing handshake failed
	ErrTypeHandshake
	// ErrTypeNotAuthenticated indicates a command was attempted before pairing
	ErrTypeNotAuthenticated
	// ErrTypeMalformedReply indicates a reply that failed validation or parsing
	ErrTypeMalformedReply
	// ErrTypeRejected indicates the device answered with a nonzero status code
	ErrTypeRejected
	// ErrTypeLearnTimeout indicates no code was captured within the learn window
	ErrTypeLearnTimeout
	// ErrTypeNoConfirmation indicates a provisioning broadcast went unanswered
	ErrTypeNoConfirmation
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNoReply:
		return "No Reply"
	case ErrTypeHandshake:
		return "Handshake Failed"
	case ErrTypeNotAuthenticated:
		return "Not Authenticated"
	case ErrTypeMalformedReply:
		return "Malformed Reply"
	case ErrTypeRejected:
		return "Device Rejected"
	case ErrTypeLearnTimeout:
		return "Learn Timeout"
	case ErrTypeNoConfirmation:
		return "No Confirmation"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure while talking to a device
type Error struct {
	Type ErrorType // Category of error
	// Message is a human-readable description
	Message string
	// Addr is the device address (for context)
	Addr string
	// Code is the device status word for ErrTypeRejected
	Code uint16
	// Underlying error (if any)
	Err error
	// Retryable reports whether repeating the operation can help
	Retryable bool
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

// classifyExchangeError wraps a transport or validation failure into a
// device Error with the right category.
func classifyExchangeError(addr string, err error) *Error {
	var terr *transport.TimeoutError
	if errors.As(err, &terr) {
		return &Error{
			Type:      ErrTypeNoReply,
			Message:   "device did not answer",
			Addr:      addr,
			Err:       err,
			Retryable: true,
		}
	}
	return &Error{
		Type:    ErrTypeUnknown,
		Message: "exchange failed",
		Addr:    addr,
		Err:     err,
	}
}

// newMalformedReplyError creates a malformed-reply error
func newMalformedReplyError(addr string, err error) *Error {
	return &Error{
		Type:    ErrTypeMalformedReply,
		Message: "reply failed validation",
		Addr:    addr,
		Err:     err,
	}
}

// newRejectedError creates an error for a nonzero device status word
func newRejectedError(addr string, code uint16) *Error {
	return &Error{
		Type:    ErrTypeRejected,
		Message: fmt.Sprintf("device reported status 0x%04X", code),
		Addr:    addr,
		Code:    code,
	}
}

// newNotAuthenticatedError creates an error for a command sent before pairing
func newNotAuthenticatedError(op string) *Error {
	return &Error{
		Type:    ErrTypeNotAuthenticated,
		Message: fmt.Sprintf("%s requires a completed pairing handshake", op),
	}
}

// IsNoReply checks if an error means the device stayed silent
func IsNoReply(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeNoReply
}

// IsHandshakeError checks if an error came from a failed pairing handshake
func IsHandshakeError(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeHandshake
}

// IsNotAuthenticated checks if an error means pairing has not happened yet
func IsNotAuthenticated(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeNotAuthenticated
}

// IsMalformedReply checks if an error came from an unparseable reply
func IsMalformedReply(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeMalformedReply
}

// IsRejected checks if an error carries a device status code
func IsRejected(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeRejected
}

// IsLearnTimeout checks if an error means no code arrived in the learn window
func IsLearnTimeout(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeLearnTimeout
}

// IsNoConfirmation checks if an error means a provisioning broadcast went
// unanswered, which is not proof the device ignored it
func IsNoConfirmation(err error) bool {
	var derr *Error
	return errors.As(err, &derr) && derr.Type == ErrTypeNoConfirmation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}
