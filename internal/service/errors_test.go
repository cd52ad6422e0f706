package service

import (
	"testing"

	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
)

func TestToDBusErrorMapsEachTaggedKindToItsBusName(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"invalid args", secreterr.InvalidArgsf("bad property"), dbtypes.ErrInvalidArgs},
		{"not supported", secreterr.NotSupportedf("nope"), dbtypes.ErrNotSupported},
		{"no session", secreterr.NoSessionf("unknown session"), dbtypes.ErrNoSession},
		{"no such object", secreterr.NoSuchObjectf("missing"), dbtypes.ErrNoSuchObject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := toDBusError(tc.err)
			if got == nil || got.Name != tc.want {
				t.Errorf("toDBusError(%v) = %v, want Name %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestToDBusErrorFallsBackToGenericFailureForCryptoAndStorage(t *testing.T) {
	for _, err := range []error{
		secreterr.Crypto("decrypt", nil),
		secreterr.Storage("query", nil),
	} {
		got := toDBusError(err)
		if got == nil {
			t.Fatalf("toDBusError(%v) = nil", err)
		}
		if got.Name == dbtypes.ErrInvalidArgs || got.Name == dbtypes.ErrNotSupported ||
			got.Name == dbtypes.ErrNoSession || got.Name == dbtypes.ErrNoSuchObject {
			t.Errorf("toDBusError(%v).Name = %q, want a generic failure name, not a dedicated one", err, got.Name)
		}
	}
}

func TestToDBusErrorNilIsNil(t *testing.T) {
	if got := toDBusError(nil); got != nil {
		t.Errorf("toDBusError(nil) = %v, want nil", got)
	}
}
