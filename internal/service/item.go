package service

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
)

// item is the object exported at one item's path. Spec section 4.3 describes
// a single stateless fallback object serving every item path; doing that with
// godbus means an ExportSubtree handler that recovers the invoked path from
// each call, a pattern the example pack only ever stubs out rather than
// finishes (see DESIGN.md). Instead one item value is exported per object
// path, each closing over nothing but its own path and the shared Service —
// every method still does nothing but look the path up in the Store, so no
// per-item state is cached here beyond the path itself. A path, once
// exported, is never unexported (see Delete): the object stays registered
// for the life of the process and leans on the Store returning "not found"
// to produce NoSuchObject, which is what keeps that error reachable through
// real dispatch for a deleted item (see DESIGN.md for the narrower gap this
// leaves for a path that was never created at all).
type item struct {
	path dbus.ObjectPath
	svc  *Service

	mu    sync.Mutex
	props *prop.Properties
}

// itemRegistry owns the set of currently-exported item objects, keyed by
// path, so export is idempotent across a CreateItem call and a startup
// re-export of whatever the Store already has on disk. Entries are never
// removed: a deleted item's path stays registered for the rest of the
// process's life (see item.Delete).
type itemRegistry struct {
	mu    sync.RWMutex
	items map[dbus.ObjectPath]*item
	svc   *Service
}

func newItemRegistry(svc *Service) *itemRegistry {
	return &itemRegistry{items: make(map[dbus.ObjectPath]*item), svc: svc}
}

// export publishes a new item object at path, or returns the existing one
// if already exported (startup re-export is idempotent).
func (r *itemRegistry) export(path dbus.ObjectPath) (*item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if it, ok := r.items[path]; ok {
		return it, nil
	}

	it := &item{path: path, svc: r.svc}
	if err := it.export(); err != nil {
		return nil, err
	}
	r.items[path] = it
	return it, nil
}

func (it *item) export() error {
	conn := it.svc.conn
	if err := conn.Export(it, it.path, dbtypes.ItemInterface); err != nil {
		return err
	}

	attrs, label, created, modified := it.currentMetadata()

	propsSpec := prop.Map{
		dbtypes.ItemInterface: {
			"Locked": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"Attributes": {
				Value:    attrs,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: func(ch *prop.Change) *dbus.Error {
					newAttrs, ok := ch.Value.(map[string]string)
					if !ok {
						return toDBusError(secreterr.InvalidArgsf("Attributes must be a string map"))
					}
					return it.setAttributes(newAttrs)
				},
			},
			"Label": {
				Value:    label,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: func(ch *prop.Change) *dbus.Error {
					newLabel, ok := ch.Value.(string)
					if !ok {
						return toDBusError(secreterr.InvalidArgsf("Label must be a string"))
					}
					return it.setLabel(newLabel)
				},
			},
			"Created": {
				Value:    created,
				Writable: false,
				Emit:     prop.EmitFalse,
			},
			"Modified": {
				Value:    modified,
				Writable: false,
				Emit:     prop.EmitFalse,
			},
		},
	}

	props, err := prop.Export(conn, it.path, propsSpec)
	if err != nil {
		conn.Export(nil, it.path, dbtypes.ItemInterface)
		return err
	}
	it.props = props

	introXML := `<node>
  <interface name="org.freedesktop.DBus.Properties">
    <method name="Get">
      <arg name="interface" type="s" direction="in"/>
      <arg name="property" type="s" direction="in"/>
      <arg name="value" type="v" direction="out"/>
    </method>
    <method name="Set">
      <arg name="interface" type="s" direction="in"/>
      <arg name="property" type="s" direction="in"/>
      <arg name="value" type="v" direction="in"/>
    </method>
    <method name="GetAll">
      <arg name="interface" type="s" direction="in"/>
      <arg name="properties" type="a{sv}" direction="out"/>
    </method>
  </interface>
  <interface name="org.freedesktop.Secret.Item">
    <method name="Delete">
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <method name="GetSecret">
      <arg name="session" type="o" direction="in"/>
      <arg name="secret" type="(oayays)" direction="out"/>
    </method>
    <method name="SetSecret">
      <arg name="secret" type="(oayays)" direction="in"/>
    </method>
    <property name="Locked" type="b" access="read"/>
    <property name="Attributes" type="a{ss}" access="readwrite"/>
    <property name="Label" type="s" access="readwrite"/>
    <property name="Created" type="t" access="read"/>
    <property name="Modified" type="t" access="read"/>
  </interface>
</node>`
	return conn.Export(introspect(introXML), it.path, dbtypes.IntrospectableInterface)
}

// currentMetadata reads the item's attributes/label/timestamps from the
// Store, defaulting xdg:schema per spec section 4.3. Absence is reported as
// zero values; callers that need to distinguish absence use the Store
// directly.
func (it *item) currentMetadata() (map[string]string, string, uint64, uint64) {
	ctx := context.Background()
	attrs, ok, err := it.svc.store.GetAttributes(ctx, string(it.path))
	if err != nil || !ok {
		attrs = map[string]string{}
	}
	if _, present := attrs[dbtypes.AttrSchema]; !present {
		attrs[dbtypes.AttrSchema] = dbtypes.DefaultSchema
	}

	meta, ok, err := it.svc.store.GetMetadata(ctx, string(it.path))
	if err != nil || !ok {
		return attrs, "", 0, 0
	}
	return attrs, meta.Label, uint64(meta.Created.Unix()), uint64(meta.Modified.Unix())
}

func (it *item) refresh() {
	if it.props == nil {
		return
	}
	attrs, label, created, modified := it.currentMetadata()
	it.props.SetMust(dbtypes.ItemInterface, "Attributes", attrs)
	it.props.SetMust(dbtypes.ItemInterface, "Label", label)
	it.props.SetMust(dbtypes.ItemInterface, "Created", created)
	it.props.SetMust(dbtypes.ItemInterface, "Modified", modified)
}

// Delete implements org.freedesktop.Secret.Item.Delete. The bus object at
// it.path is deliberately left exported afterward (see the item doc comment):
// every other method already treats a missing Store row as NoSuchObject, so
// leaving the path registered is what lets a subsequent GetSecret/SetSecret
// against it actually reach that check instead of failing at the godbus
// dispatch layer with an unrelated unknown-object error.
func (it *item) Delete() (dbus.ObjectPath, *dbus.Error) {
	ctx := context.Background()
	if err := it.svc.store.DeleteItem(ctx, string(it.path)); err != nil {
		return dbtypes.NullPath, toDBusError(secreterr.NoSuchObjectf("delete: %s: %v", it.path, err))
	}

	it.svc.collection.refreshItems()
	it.svc.conn.Emit(it.svc.collection.Path(), dbtypes.CollectionInterface+".ItemDeleted", it.path)

	return dbtypes.NullPath, nil
}

// GetSecret implements org.freedesktop.Secret.Item.GetSecret.
func (it *item) GetSecret(sessionPath dbus.ObjectPath) (dbtypes.Secret, *dbus.Error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	session, ok := it.svc.sessions.Get(sessionPath)
	if !ok {
		return dbtypes.Secret{}, toDBusError(secreterr.NoSessionf("unknown session %s", sessionPath))
	}

	ctx := context.Background()
	secret, contentType, ok, err := it.svc.store.GetSecret(ctx, string(it.path))
	if err != nil {
		return dbtypes.Secret{}, toDBusError(secreterr.Storage("get_secret", err))
	}
	if !ok {
		return dbtypes.Secret{}, toDBusError(secreterr.NoSuchObjectf("no such item %s", it.path))
	}

	params, ciphertext, err := session.Encrypt(secret)
	if err != nil {
		return dbtypes.Secret{}, toDBusError(err)
	}

	return dbtypes.Secret{
		Session:     sessionPath,
		Parameters:  params,
		Value:       ciphertext,
		ContentType: contentType,
	}, nil
}

// SetSecret implements org.freedesktop.Secret.Item.SetSecret. Per spec
// section 4.3's resolved open question, both the secret bytes and the
// content type are always updated together.
func (it *item) SetSecret(secret dbtypes.Secret) *dbus.Error {
	it.mu.Lock()
	defer it.mu.Unlock()

	session, ok := it.svc.sessions.Get(secret.Session)
	if !ok {
		return toDBusError(secreterr.NoSessionf("unknown session %s", secret.Session))
	}

	plaintext, err := session.Decrypt(secret.Parameters, secret.Value)
	if err != nil {
		return toDBusError(err)
	}

	ctx := context.Background()
	if err := it.svc.store.SetSecret(ctx, string(it.path), plaintext, secret.ContentType); err != nil {
		return toDBusError(secreterr.NoSuchObjectf("set_secret: %s: %v", it.path, err))
	}

	it.refresh()
	it.svc.conn.Emit(it.svc.collection.Path(), dbtypes.CollectionInterface+".ItemChanged", it.path)
	return nil
}

func (it *item) setAttributes(attrs map[string]string) *dbus.Error {
	ctx := context.Background()
	exists, err := it.svc.store.ItemExists(ctx, string(it.path))
	if err != nil {
		return toDBusError(secreterr.Storage("set_attributes", err))
	}
	if !exists {
		return toDBusError(secreterr.NoSuchObjectf("set_attributes: no such item %s", it.path))
	}
	if err := it.svc.store.SetAttributes(ctx, string(it.path), attrs); err != nil {
		return toDBusError(secreterr.NoSuchObjectf("set_attributes: %s: %v", it.path, err))
	}
	it.refresh()
	it.svc.collection.refreshItems()
	it.svc.conn.Emit(it.svc.collection.Path(), dbtypes.CollectionInterface+".ItemChanged", it.path)
	return nil
}

func (it *item) setLabel(label string) *dbus.Error {
	ctx := context.Background()
	if err := it.svc.store.SetMetadataLabel(ctx, string(it.path), label); err != nil {
		return toDBusError(secreterr.NoSuchObjectf("set_metadata_label: %s: %v", it.path, err))
	}
	it.refresh()
	it.svc.conn.Emit(it.svc.collection.Path(), dbtypes.CollectionInterface+".ItemChanged", it.path)
	return nil
}
