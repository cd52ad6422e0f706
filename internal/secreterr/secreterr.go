// Package secreterr defines the tagged error variants that flow out of the
// store and crypto layers. Nothing below the service package's method bodies
// constructs a bus error directly; everything returns one of these instead,
// the same way internal/service/errors.go used to hand back ready-made
// *dbus.Error values, just one layer further from the wire.
package secreterr

import "fmt"

// Kind identifies which of the six error variants an Error carries.
type Kind int

const (
	// InvalidArgs marks a protocol/usage error: bad interface or property
	// name, or a write to a read-only property.
	InvalidArgs Kind = iota
	// NotSupported marks a capability refusal: unsupported algorithm,
	// alias != "default", Lock/SetAlias/Collection.Delete.
	NotSupported
	// NoSession marks a session path that cannot be resolved.
	NoSession
	// NoSuchObject marks an item path with no backing rows.
	NoSuchObject
	// CryptoError marks malformed ciphertext, a wrong IV length, or bad
	// padding.
	CryptoError
	// StorageError marks a failure from the underlying storage engine.
	StorageError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgs:
		return "InvalidArgs"
	case NotSupported:
		return "NotSupported"
	case NoSession:
		return "NoSession"
	case NoSuchObject:
		return "NoSuchObject"
	case CryptoError:
		return "CryptoError"
	case StorageError:
		return "StorageError"
	default:
		return "Unknown"
	}
}

// Error is a tagged error: a Kind plus the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func new(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// InvalidArgsf builds an InvalidArgs error.
func InvalidArgsf(format string, a ...interface{}) *Error {
	return new(InvalidArgs, fmt.Sprintf(format, a...), nil)
}

// NotSupportedf builds a NotSupported error.
func NotSupportedf(format string, a ...interface{}) *Error {
	return new(NotSupported, fmt.Sprintf(format, a...), nil)
}

// NoSessionf builds a NoSession error.
func NoSessionf(format string, a ...interface{}) *Error {
	return new(NoSession, fmt.Sprintf(format, a...), nil)
}

// NoSuchObjectf builds a NoSuchObject error.
func NoSuchObjectf(format string, a ...interface{}) *Error {
	return new(NoSuchObject, fmt.Sprintf(format, a...), nil)
}

// Crypto wraps err as a CryptoError.
func Crypto(msg string, err error) *Error {
	return new(CryptoError, msg, err)
}

// Storage wraps err as a StorageError.
func Storage(msg string, err error) *Error {
	return new(StorageError, msg, err)
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
