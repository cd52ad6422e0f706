package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/gosecrets/secretsd/internal/config"
	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
	"github.com/gosecrets/secretsd/internal/store"
)

// Service implements org.freedesktop.Secret.Service, the root object at
// /org/freedesktop/secrets. It owns the object-path allocator, the session
// registry, the item registry, and the one Collection this daemon ever
// creates (spec section 4.5: CreateCollection accepts only "default").
type Service struct {
	conn  *dbus.Conn
	store store.Store
	cfg   *config.Config
	log   *slog.Logger

	sessions   *SessionManager
	items      *itemRegistry
	collection *Collection
	promptPath dbus.ObjectPath

	counterMu sync.Mutex
	counter   uint64

	props *prop.Properties
}

// New wires a Service around an already-open bus connection and Store. It
// does not claim the bus name or export anything; call Start for that.
func New(conn *dbus.Conn, st store.Store, cfg *config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	svc := &Service{
		conn:    conn,
		store:   st,
		cfg:     cfg,
		log:     log,
		counter: 0, // nothing competes for index 0: the default collection and the null
		// prompt are hardcoded to path index 0 directly, never drawn from allocate
	}
	svc.sessions = NewSessionManager(conn, log)
	svc.items = newItemRegistry(svc)
	return svc
}

// allocate hands out the next value of the single monotonic counter spec
// section 4.5 describes. Only OpenSession and Collection.CreateItem draw from
// it; the default collection and the null prompt are hardcoded to path index
// 0 instead, so there is nothing for index 0 to collide with.
func (s *Service) allocate() uint64 {
	s.counterMu.Lock()
	defer s.counterMu.Unlock()
	n := s.counter
	s.counter++
	return n
}

// Start exports the Service object, the static Prompt, and the default
// Collection (re-exporting any items already on disk), then claims the
// well-known bus name and begins watching for peer disconnects.
func (s *Service) Start(ctx context.Context) error {
	if err := s.conn.Export(s, dbtypes.ServicePath, dbtypes.ServiceInterface); err != nil {
		return fmt.Errorf("export service object: %w", err)
	}

	promptPath, err := exportNullPrompt(s.conn)
	if err != nil {
		return fmt.Errorf("export null prompt: %w", err)
	}
	s.promptPath = promptPath

	if err := s.ensureDefaultCollection(ctx); err != nil {
		return fmt.Errorf("ensure default collection: %w", err)
	}

	propsSpec := prop.Map{
		dbtypes.ServiceInterface: {
			"Collections": {
				Value:    []dbus.ObjectPath{s.collection.Path()},
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	}
	props, err := prop.Export(s.conn, dbtypes.ServicePath, propsSpec)
	if err != nil {
		return fmt.Errorf("export service properties: %w", err)
	}
	s.props = props

	if err := s.conn.Export(introspect(s.introspectionXML()), dbtypes.ServicePath, dbtypes.IntrospectableInterface); err != nil {
		return fmt.Errorf("export service introspection: %w", err)
	}

	bus := s.conn.BusObject()
	flags := dbus.NameFlagDoNotQueue
	reply, err := bus.RequestName(dbtypes.ServiceName, flags)
	if err != nil {
		return fmt.Errorf("request name %s: %w", dbtypes.ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already owned on this bus", dbtypes.ServiceName)
	}
	s.log.Info("acquired bus name", slog.String("name", dbtypes.ServiceName))

	bus.AddMatchSignal("org.freedesktop.DBus", "NameOwnerChanged")
	go s.watchPeers()

	return nil
}

// Stop releases the bus name, tears down every live session, and closes
// the Store.
func (s *Service) Stop() error {
	s.sessions.CloseAll()
	if _, err := s.conn.ReleaseName(dbtypes.ServiceName); err != nil {
		s.log.Warn("release bus name failed", slog.Any("error", err))
	}
	return s.store.Close()
}

// ensureDefaultCollection creates the default collection on first run, or
// re-discovers it (and its items) on a restart. The default collection
// always sits at path index 0, independent of the counter, so its object
// path is stable across restarts without needing any separate persisted
// pointer to it. The counter is moved past the highest item index found on
// disk; with no items on disk it is left where it is.
func (s *Service) ensureDefaultCollection(ctx context.Context) error {
	path := dbtypes.CollectionPath(0)

	coll, err := newCollection(s, path, dbtypes.DefaultAlias, s.cfg.DefaultCollectionLabel)
	if err != nil {
		return err
	}
	s.collection = coll

	objects, err := s.store.FindItems(ctx, map[string]string{dbtypes.AttrCollection: string(path)})
	if err != nil {
		return fmt.Errorf("find existing items: %w", err)
	}

	maxCounter := uint64(0)
	found := false
	for _, obj := range objects {
		n, err := dbtypes.ParseItemPath(dbus.ObjectPath(obj))
		if err != nil {
			s.log.Warn("skipping item with unparseable path", slog.String("object", obj))
			continue
		}
		found = true
		if n > maxCounter {
			maxCounter = n
		}
		if _, err := s.items.export(dbus.ObjectPath(obj)); err != nil {
			return fmt.Errorf("re-export item %s: %w", obj, err)
		}
	}

	s.counterMu.Lock()
	if found && maxCounter+1 > s.counter {
		s.counter = maxCounter + 1
	}
	s.counterMu.Unlock()

	return nil
}

// watchPeers consumes NameOwnerChanged signals and drops every session
// owned by a peer that just lost its unique bus name (spec section 4.5,
// "client teardown"; section 9's gc_client hook).
func (s *Service) watchPeers() {
	ch := make(chan *dbus.Signal, 16)
	s.conn.Signal(ch)
	for sig := range ch {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) != 3 {
			continue
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if newOwner != "" || name == "" {
			continue // gained an owner, not a disconnect
		}
		s.sessions.DropOwner(name)
		s.log.Debug("dropped sessions for departed peer", slog.String("peer", name))
	}
}

// OpenSession implements org.freedesktop.Secret.Service.OpenSession.
func (s *Service) OpenSession(algorithm string, input dbus.Variant, sender dbus.Sender) (dbus.Variant, dbus.ObjectPath, *dbus.Error) {
	var inputBytes []byte
	switch v := input.Value().(type) {
	case []byte:
		inputBytes = v
	case string:
		inputBytes = []byte(v)
	}

	n := s.allocate()
	session, output, err := s.sessions.Create(algorithm, inputBytes, string(sender), n)
	if err != nil {
		return dbus.MakeVariant([]byte{}), dbtypes.NullPath, toDBusError(err)
	}

	return dbus.MakeVariant(output), session.Path(), nil
}

// CreateCollection implements org.freedesktop.Secret.Service.CreateCollection.
// Spec section 4.5: only alias "default" is ever accepted.
func (s *Service) CreateCollection(properties map[string]dbus.Variant, alias string) (dbus.ObjectPath, dbus.ObjectPath, *dbus.Error) {
	_ = properties
	if alias != dbtypes.DefaultAlias {
		return dbtypes.NullPath, dbtypes.NullPath, toDBusError(secreterr.NotSupportedf("alias %q is not supported; only %q", alias, dbtypes.DefaultAlias))
	}
	return s.collection.Path(), dbtypes.NullPath, nil
}

// SearchItems implements org.freedesktop.Secret.Service.SearchItems: a
// direct, unfiltered delegation to the Store, unlike Collection.SearchItems
// which preserves the alias-filter bug.
func (s *Service) SearchItems(attributes map[string]string) ([]dbus.ObjectPath, []dbus.ObjectPath, *dbus.Error) {
	ctx := context.Background()
	objects, err := s.store.FindItems(ctx, attributes)
	if err != nil {
		return nil, nil, toDBusError(secreterr.Storage("search_items", err))
	}
	unlocked := make([]dbus.ObjectPath, 0, len(objects))
	for _, obj := range objects {
		unlocked = append(unlocked, dbus.ObjectPath(obj))
	}
	return unlocked, nil, nil
}

// Unlock implements org.freedesktop.Secret.Service.Unlock. Every collection
// is permanently unlocked, so this is a genuine no-op that hands the input
// back unchanged (spec section 1).
func (s *Service) Unlock(objects []dbus.ObjectPath) ([]dbus.ObjectPath, dbus.ObjectPath, *dbus.Error) {
	return objects, dbtypes.NullPath, nil
}

// Lock implements org.freedesktop.Secret.Service.Lock. Spec section 1
// defines this as unimplemented.
func (s *Service) Lock(objects []dbus.ObjectPath) ([]dbus.ObjectPath, dbus.ObjectPath, *dbus.Error) {
	_ = objects
	return nil, dbtypes.NullPath, toDBusError(secreterr.NotSupportedf("Lock is not supported"))
}

// GetSecrets implements org.freedesktop.Secret.Service.GetSecrets.
func (s *Service) GetSecrets(items []dbus.ObjectPath, sessionPath dbus.ObjectPath) (map[dbus.ObjectPath]dbtypes.Secret, *dbus.Error) {
	session, ok := s.sessions.Get(sessionPath)
	if !ok {
		return nil, toDBusError(secreterr.NoSessionf("unknown session %s", sessionPath))
	}

	ctx := context.Background()
	secrets := make(map[dbus.ObjectPath]dbtypes.Secret, len(items))
	for _, path := range items {
		secret, contentType, ok, err := s.store.GetSecret(ctx, string(path))
		if err != nil || !ok {
			continue
		}
		params, ciphertext, err := session.Encrypt(secret)
		if err != nil {
			continue
		}
		secrets[path] = dbtypes.Secret{
			Session:     sessionPath,
			Parameters:  params,
			Value:       ciphertext,
			ContentType: contentType,
		}
	}
	return secrets, nil
}

// ReadAlias implements org.freedesktop.Secret.Service.ReadAlias.
func (s *Service) ReadAlias(name string) (dbus.ObjectPath, *dbus.Error) {
	if name != dbtypes.DefaultAlias {
		return dbtypes.NullPath, nil
	}
	return s.collection.Path(), nil
}

// SetAlias implements org.freedesktop.Secret.Service.SetAlias. Spec section
// 1 defines this as unimplemented.
func (s *Service) SetAlias(name string, collection dbus.ObjectPath) *dbus.Error {
	_, _ = name, collection
	return toDBusError(secreterr.NotSupportedf("SetAlias is not supported"))
}

func (s *Service) introspectionXML() string {
	return `<node>
  <interface name="org.freedesktop.Secret.Service">
    <method name="OpenSession">
      <arg name="algorithm" type="s" direction="in"/>
      <arg name="input" type="v" direction="in"/>
      <arg name="output" type="v" direction="out"/>
      <arg name="result" type="o" direction="out"/>
    </method>
    <method name="CreateCollection">
      <arg name="properties" type="a{sv}" direction="in"/>
      <arg name="alias" type="s" direction="in"/>
      <arg name="collection" type="o" direction="out"/>
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <method name="SearchItems">
      <arg name="attributes" type="a{ss}" direction="in"/>
      <arg name="unlocked" type="ao" direction="out"/>
      <arg name="locked" type="ao" direction="out"/>
    </method>
    <method name="Unlock">
      <arg name="objects" type="ao" direction="in"/>
      <arg name="unlocked" type="ao" direction="out"/>
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <method name="Lock">
      <arg name="objects" type="ao" direction="in"/>
      <arg name="locked" type="ao" direction="out"/>
      <arg name="prompt" type="o" direction="out"/>
    </method>
    <method name="GetSecrets">
      <arg name="items" type="ao" direction="in"/>
      <arg name="session" type="o" direction="in"/>
      <arg name="secrets" type="a{o(oayays)}" direction="out"/>
    </method>
    <method name="ReadAlias">
      <arg name="name" type="s" direction="in"/>
      <arg name="collection" type="o" direction="out"/>
    </method>
    <method name="SetAlias">
      <arg name="name" type="s" direction="in"/>
      <arg name="collection" type="o" direction="in"/>
    </method>
    <property name="Collections" type="ao" access="read"/>
  </interface>
</node>`
}
