package service

import (
	"github.com/godbus/dbus/v5"

	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
)

// toDBusError converts a tagged secreterr.Error into the bus-level error
// spec section 6 names. This is the only place in the service package that
// constructs a *dbus.Error from an internal error; store and crypto code
// never sees a dbus.Error, only the method bodies that call this on the
// way out.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	se, ok := err.(*secreterr.Error)
	if !ok {
		return dbus.MakeFailedError(err)
	}
	switch se.Kind {
	case secreterr.InvalidArgs:
		return NewDBusError(dbtypes.ErrInvalidArgs, se.Error())
	case secreterr.NotSupported:
		return NewDBusError(dbtypes.ErrNotSupported, se.Error())
	case secreterr.NoSession:
		return NewDBusError(dbtypes.ErrNoSession, se.Error())
	case secreterr.NoSuchObject:
		return NewDBusError(dbtypes.ErrNoSuchObject, se.Error())
	default:
		// CryptoError and StorageError have no dedicated bus-level name in
		// spec section 6; they propagate as a generic failed call.
		return dbus.MakeFailedError(se)
	}
}

// NewDBusError builds a *dbus.Error carrying msg as its single body value.
func NewDBusError(name, message string) *dbus.Error {
	return &dbus.Error{
		Name: name,
		Body: []interface{}{message},
	}
}
