package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/gosecrets/secretsd/internal/crypto"
	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/store"
)

// newTestItemService builds a Service with a real on-disk Store but no bus
// connection, matching collection_test.go and errors_test.go's pattern of
// exercising dispatch-bound logic directly rather than over a live bus
// (there's no grounded in-pack pattern for a private/offline *dbus.Conn).
func newTestItemService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "secrets.db"), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := &Service{store: st}
	svc.sessions = NewSessionManager(nil, nil)
	svc.items = newItemRegistry(svc)
	return svc
}

// registerItem places an item directly in the registry without going through
// item.export, which needs a live *dbus.Conn. Bypassing the bus side of
// export is safe here: every method under test only reads from svc.store and
// svc.sessions, never svc.conn.
func registerItem(svc *Service, path dbus.ObjectPath) *item {
	it := &item{path: path, svc: svc}
	svc.items.mu.Lock()
	svc.items.items[path] = it
	svc.items.mu.Unlock()
	return it
}

// registerPlainSession inserts a "plain" session straight into the manager's
// registry, bypassing SessionManager.Create's bus export, since
// item.GetSecret only needs a resolvable Session.
func registerPlainSession(t *testing.T, svc *Service, path dbus.ObjectPath) {
	t.Helper()
	cryptoSession, _, err := crypto.NewSession("plain", nil)
	if err != nil {
		t.Fatalf("crypto.NewSession: %v", err)
	}
	svc.sessions.sessions[path] = &Session{path: path, crypto: cryptoSession}
}

// TestItemGetSecretAfterDeleteIsNoSuchObject covers the GetSecret half of
// the delete-then-GetSecret scenario in spec section 4.3: once the item's
// rows are gone, GetSecret raises NoSuchObject. The deletion goes straight
// through the Store, because item.Delete also refreshes the collection and
// emits a signal over a live *dbus.Conn; Delete's own return value is not
// checked here. Like the Store deletion, item.Delete leaves the registry
// entry (and the item's bus object) in place (see item.go), which is what
// lets a GetSecret call reach item.GetSecret's own NoSuchObject check at
// all instead of failing earlier at the godbus dispatch layer.
func TestItemGetSecretAfterDeleteIsNoSuchObject(t *testing.T) {
	svc := newTestItemService(t)
	ctx := context.Background()

	itemPath := dbtypes.ItemPath(0)
	sessionPath := dbtypes.SessionPath(0)
	registerPlainSession(t, svc, sessionPath)

	attrs := map[string]string{"app": "x"}
	if err := svc.store.AddItem(ctx, string(itemPath), "test", attrs, []byte("hunter2"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	it := registerItem(svc, itemPath)

	if err := svc.store.DeleteItem(ctx, string(itemPath)); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	_, dbusErr := it.GetSecret(sessionPath)
	if dbusErr == nil {
		t.Fatalf("GetSecret after delete succeeded, want NoSuchObject")
	}
	if dbusErr.Name != dbtypes.ErrNoSuchObject {
		t.Errorf("GetSecret after delete = %v, want Name %q", dbusErr, dbtypes.ErrNoSuchObject)
	}

	if _, ok := svc.items.items[itemPath]; !ok {
		t.Errorf("item path %s removed from registry on delete; it must stay registered so real bus dispatch still reaches this NoSuchObject check", itemPath)
	}
}

// TestItemGetSecretUnknownSessionIsNoSession checks that the session-not-found
// branch wins even against an item that still exists, i.e. GetSecret checks
// the session before ever touching the Store.
func TestItemGetSecretUnknownSessionIsNoSession(t *testing.T) {
	svc := newTestItemService(t)
	ctx := context.Background()

	itemPath := dbtypes.ItemPath(0)
	if err := svc.store.AddItem(ctx, string(itemPath), "test", map[string]string{}, []byte("s"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	it := registerItem(svc, itemPath)

	_, dbusErr := it.GetSecret(dbtypes.SessionPath(99))
	if dbusErr == nil || dbusErr.Name != dbtypes.ErrNoSession {
		t.Errorf("GetSecret with unknown session = %v, want Name %q", dbusErr, dbtypes.ErrNoSession)
	}
}
