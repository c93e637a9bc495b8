// Package ibkrerr defines the error taxonomy shared by every layer of the
// client: not-connected, outdated-server, unsupported-feature,
// protocol-error, API-error, transport, and invariant-violation failures.
package ibkrerr

import (
	"errors"
	"fmt"
)

// Kind classifies a ClientError so callers can branch on failure category
// with errors.As instead of string matching.
type Kind int

const (
	// NotConnected means an operation was attempted before the handshake
	// completed.
	NotConnected Kind = iota
	// OutdatedServer means a feature requires a newer negotiated protocol
	// version than the server offered.
	OutdatedServer
	// UnsupportedFeature means the client deliberately does not implement
	// an on-the-wire variant (BAG instruments, combo legs, order
	// conditions).
	UnsupportedFeature
	// ProtocolError means a malformed frame or an unknown field type was
	// encountered.
	ProtocolError
	// APIError means the server reported an error with a code and message.
	APIError
	// Transport means a read or write on the underlying connection failed;
	// the Connection is dead and every pending completion must be failed
	// with this kind.
	Transport
	// InvariantViolation means a programmer error was detected (e.g. a
	// double market-data subscribe, a duplicate contract id assignment).
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case NotConnected:
		return "not-connected"
	case OutdatedServer:
		return "outdated-server"
	case UnsupportedFeature:
		return "unsupported-feature"
	case ProtocolError:
		return "protocol-error"
	case APIError:
		return "api-error"
	case Transport:
		return "transport"
	case InvariantViolation:
		return "invariant-violation"
	default:
		return fmt.Sprintf("unknown-kind(%d)", int(k))
	}
}

// ClientError is the concrete error type returned across package
// boundaries. Code is only meaningful for Kind == APIError, where it
// carries the server-reported error code.
type ClientError struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ibclient: %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("ibclient: %s: %s", e.Kind, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// New constructs a ClientError with no wrapped cause.
func New(kind Kind, message string) *ClientError {
	return &ClientError{Kind: kind, Message: message}
}

// Newf constructs a ClientError with a formatted message.
func Newf(kind Kind, format string, args ...any) *ClientError {
	return &ClientError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a ClientError of the given kind wrapping err.
func Wrap(kind Kind, err error) *ClientError {
	return &ClientError{Kind: kind, Message: err.Error(), Err: err}
}

// APIErrorf constructs a ClientError of Kind APIError carrying the
// server-reported code.
func APIErrorf(code int, message string) *ClientError {
	return &ClientError{Kind: APIError, Code: code, Message: message}
}

// Is reports whether err is a ClientError of the given kind.
func Is(err error, kind Kind) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
