package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
)

// Collection is the daemon's single collection, always published under the
// "default" alias. Spec section 4.5 only ever lets CreateCollection mint
// this one collection, so unlike the teacher's per-name CollectionManager
// there is exactly one Collection value for the life of the process.
type Collection struct {
	path  dbus.ObjectPath
	alias string
	svc   *Service

	mu       sync.RWMutex
	label    string
	propsets []*prop.Properties
}

// newCollection constructs the default collection at the given path with
// label and exports it (including at its alias path).
func newCollection(svc *Service, path dbus.ObjectPath, alias, label string) (*Collection, error) {
	c := &Collection{path: path, alias: alias, svc: svc, label: label}
	if err := c.export(c.path); err != nil {
		return nil, err
	}
	if err := c.export(dbtypes.AliasPath(alias)); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the collection's primary object path.
func (c *Collection) Path() dbus.ObjectPath { return c.path }

func (c *Collection) export(path dbus.ObjectPath) error {
	conn := c.svc.conn
	if err := conn.Export(c, path, dbtypes.CollectionInterface); err != nil {
		return err
	}

	propsSpec := prop.Map{
		dbtypes.CollectionInterface: {
			"Items": {
				Value:    c.itemPaths(),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"Label": {
				Value:    c.label,
				Writable: true,
				Emit:     prop.EmitTrue,
				Callback: func(ch *prop.Change) *dbus.Error {
					label, ok := ch.Value.(string)
					if !ok {
						return toDBusError(secreterr.InvalidArgsf("Label must be a string"))
					}
					return c.setLabel(label)
				},
			},
			"Locked": {
				Value:    false,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			// Spec section 4.4: Created/Modified are always 0 for a collection,
			// a documented limitation rather than an oversight.
			"Created": {
				Value:    uint64(0),
				Writable: false,
				Emit:     prop.EmitFalse,
			},
			"Modified": {
				Value:    uint64(0),
				Writable: false,
				Emit:     prop.EmitFalse,
			},
		},
	}
	props, err := prop.Export(conn, path, propsSpec)
	if err != nil {
		conn.Export(nil, path, dbtypes.CollectionInterface)
		return err
	}
	c.propsets = append(c.propsets, props)

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
  <interface name="org.freedesktop.Secret.Collection">
    <method name="Delete">
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <method name="SearchItems">
      <arg name="attributes" type="a{ss}" direction="in"/>
      <arg name="results" type="ao" direction="out"/>
    </method>
    <method name="CreateItem">
      <arg name="properties" type="a{sv}" direction="in"/>
      <arg name="secret" type="(oayays)" direction="in"/>
      <arg name="replace" type="b" direction="in"/>
      <arg name="item" type="o" direction="out"/>
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <signal name="ItemCreated">
      <arg name="item" type="o"/>
    </signal>
    <signal name="ItemDeleted">
      <arg name="item" type="o"/>
    </signal>
    <signal name="ItemChanged">
      <arg name="item" type="o"/>
    </signal>
    <property name="Items" type="ao" access="read"/>
    <property name="Label" type="s" access="readwrite"/>
    <property name="Locked" type="b" access="read"/>
    <property name="Created" type="t" access="read"/>
    <property name="Modified" type="t" access="read"/>
  </interface>
</node>`
	return conn.Export(introspect(introXML), path, dbtypes.IntrospectableInterface)
}

// Delete implements org.freedesktop.Secret.Collection.Delete. Spec 4.4
// refuses this outright rather than implementing real deletion.
func (c *Collection) Delete() (dbus.ObjectPath, *dbus.Error) {
	return dbtypes.NullPath, toDBusError(secreterr.NotSupportedf("collection deletion is not supported"))
}

// SearchItems implements org.freedesktop.Secret.Collection.SearchItems.
//
// Spec section 4.4 preserves a latent bug bit-for-bit: this filters on the
// collection's alias string rather than its object path, even though
// CreateItem stamps xdg:collection with the object path. So this method
// will in practice never match anything this daemon itself created; it is
// kept this way deliberately (see DESIGN.md) rather than "fixed" to use
// c.path, per spec's documented open question.
func (c *Collection) SearchItems(attributes map[string]string) ([]dbus.ObjectPath, *dbus.Error) {
	match := make(map[string]string, len(attributes)+1)
	for k, v := range attributes {
		match[k] = v
	}
	match[dbtypes.AttrCollection] = c.alias

	ctx := context.Background()
	objects, err := c.svc.store.FindItems(ctx, match)
	if err != nil {
		return nil, toDBusError(secreterr.Storage("search_items", err))
	}

	paths := make([]dbus.ObjectPath, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, dbus.ObjectPath(obj))
	}
	return paths, nil
}

// CreateItem implements org.freedesktop.Secret.Collection.CreateItem.
func (c *Collection) CreateItem(properties map[string]dbus.Variant, secretTuple dbtypes.Secret, replace bool) (dbus.ObjectPath, dbus.ObjectPath, *dbus.Error) {
	session, ok := c.svc.sessions.Get(secretTuple.Session)
	if !ok {
		return dbtypes.NullPath, dbtypes.NullPath, toDBusError(secreterr.NoSessionf("unknown session %s", secretTuple.Session))
	}

	plaintext, err := session.Decrypt(secretTuple.Parameters, secretTuple.Value)
	if err != nil {
		return dbtypes.NullPath, dbtypes.NullPath, toDBusError(err)
	}

	label, attributes := extractItemProperties(properties)

	n := c.svc.allocate()
	itemPath := dbtypes.ItemPath(n)

	// Ensure xdg:collection (object path, not alias) and xdg:schema defaults,
	// per spec section 3.
	attributes[dbtypes.AttrCollection] = string(c.path)
	if _, ok := attributes[dbtypes.AttrSchema]; !ok {
		attributes[dbtypes.AttrSchema] = dbtypes.DefaultSchema
	}

	ctx := context.Background()
	if err := c.svc.store.AddItem(ctx, string(itemPath), label, attributes, plaintext, secretTuple.ContentType); err != nil {
		return dbtypes.NullPath, dbtypes.NullPath, toDBusError(secreterr.Storage("create_item", err))
	}

	if _, err := c.svc.items.export(itemPath); err != nil {
		return dbtypes.NullPath, dbtypes.NullPath, toDBusError(secreterr.Storage("create_item: export", err))
	}

	c.svc.conn.Emit(c.path, dbtypes.CollectionInterface+".ItemCreated", itemPath)
	c.refreshItems()

	// replace is accepted but intentionally not honored (spec 4.4, known gap).
	_ = replace

	return itemPath, dbtypes.NullPath, nil
}

// extractItemProperties pulls the Item.Label and Item.Attributes entries out
// of a CreateItem properties map (spec section 4.4 step 1). It tolerates
// either encoding a client may use for the nested string-map variant
// (a{sv} unwrapped to map[string]dbus.Variant by some bindings, a{ss}-typed
// map[string]string by others) and is otherwise a no-op on anything it
// doesn't recognize rather than erroring, matching the teacher's tolerance
// for loosely-typed property dicts.
func extractItemProperties(properties map[string]dbus.Variant) (label string, attributes map[string]string) {
	attributes = make(map[string]string)

	if v, ok := properties[dbtypes.ItemInterface+".Label"]; ok {
		if s, ok := v.Value().(string); ok {
			label = s
		}
	}

	if v, ok := properties[dbtypes.ItemInterface+".Attributes"]; ok {
		switch a := v.Value().(type) {
		case map[string]string:
			for k, val := range a {
				attributes[k] = val
			}
		case map[string]dbus.Variant:
			for k, vv := range a {
				if s, ok := vv.Value().(string); ok {
					attributes[k] = s
				}
			}
		}
	}

	return label, attributes
}

// setLabel updates the in-memory label. The property dispatch layer already
// emits org.freedesktop.DBus.Properties.PropertiesChanged for this write
// (Emit: prop.EmitTrue in export); unlike an item mutation, a label rename
// has no Collection-level signal of its own to fire.
func (c *Collection) setLabel(label string) *dbus.Error {
	c.mu.Lock()
	c.label = label
	c.mu.Unlock()
	return nil
}

// itemPaths computes Items the way the spec describes: Store.find_items
// filtered on this collection's object path.
func (c *Collection) itemPaths() []dbus.ObjectPath {
	ctx := context.Background()
	objects, err := c.svc.store.FindItems(ctx, map[string]string{dbtypes.AttrCollection: string(c.path)})
	if err != nil {
		c.svc.log.Warn("find_items failed while computing Collection.Items", slog.Any("error", err))
		return []dbus.ObjectPath{}
	}
	paths := make([]dbus.ObjectPath, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, dbus.ObjectPath(obj))
	}
	return paths
}

// refreshItems recomputes and republishes the Items property after any
// mutation that can change collection membership.
func (c *Collection) refreshItems() {
	items := c.itemPaths()
	for _, props := range c.propsets {
		props.SetMust(dbtypes.CollectionInterface, "Items", items)
	}
}
