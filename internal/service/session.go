package service

import (
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/gosecrets/secretsd/internal/crypto"
	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
	"github.com/gosecrets/secretsd/internal/secreterr"
)

// Session is a transient per-client transport-crypto context, exported on
// the bus as org.freedesktop.Secret.Session. It holds no Store state; all it
// does is negotiate once in SessionManager.Create and then wrap/unwrap
// secret bytes.
type Session struct {
	path    dbus.ObjectPath
	traceID string // uuid used only for log correlation, never part of the wire path
	crypto  crypto.Session
	owner   string // bus unique name of the peer that opened this session
	conn    *dbus.Conn

	mu     sync.RWMutex
	closed bool
}

// SessionManager owns every live Session, keyed by path, and additionally
// indexes sessions by owning peer so a NameOwnerChanged departure can drop
// every session belonging to that peer in one pass (spec section 4.5,
// "client teardown").
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[dbus.ObjectPath]*Session
	byOwner  map[string]map[dbus.ObjectPath]struct{}
	conn     *dbus.Conn
	log      *slog.Logger
}

// NewSessionManager creates an empty session registry bound to conn. log is
// used only for the info-level open/close correlation spec section 10.2
// asks for; a nil logger falls back to slog.Default().
func NewSessionManager(conn *dbus.Conn, log *slog.Logger) *SessionManager {
	if log == nil {
		log = slog.Default()
	}
	return &SessionManager{
		sessions: make(map[dbus.ObjectPath]*Session),
		byOwner:  make(map[string]map[dbus.ObjectPath]struct{}),
		conn:     conn,
		log:      log,
	}
}

// Create negotiates a session for algorithm against input, allocates it at
// the path corresponding to counter n, and exports it. owner is the bus
// unique name of the calling peer, used later for NameOwnerChanged teardown.
func (m *SessionManager) Create(algorithm string, input []byte, owner string, n uint64) (*Session, []byte, error) {
	cryptoSession, output, err := crypto.NewSession(algorithm, input)
	if err != nil {
		return nil, nil, secreterr.NotSupportedf("open_session: %v", err)
	}

	path := dbtypes.SessionPath(n)
	session := &Session{
		path:    path,
		traceID: uuid.NewString(),
		crypto:  cryptoSession,
		owner:   owner,
		conn:    m.conn,
	}

	if err := m.conn.Export(session, path, dbtypes.SessionInterface); err != nil {
		return nil, nil, secreterr.Storage("open_session: export session object", err)
	}
	introXML := `<node>
  <interface name="org.freedesktop.Secret.Session">
    <method name="Close"/>
  </interface>
</node>`
	if err := m.conn.Export(introspect(introXML), path, dbtypes.IntrospectableInterface); err != nil {
		m.conn.Export(nil, path, dbtypes.SessionInterface)
		return nil, nil, secreterr.Storage("open_session: export introspection", err)
	}

	m.mu.Lock()
	m.sessions[path] = session
	if m.byOwner[owner] == nil {
		m.byOwner[owner] = make(map[dbus.ObjectPath]struct{})
	}
	m.byOwner[owner][path] = struct{}{}
	m.mu.Unlock()

	m.log.Info("session opened",
		slog.String("path", string(path)),
		slog.String("trace_id", session.traceID),
		slog.String("algorithm", algorithm),
		slog.String("owner", owner))

	return session, output, nil
}

// Get resolves a session path to its live Session.
func (m *SessionManager) Get(path dbus.ObjectPath) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[path]
	return s, ok
}

// Close removes path from the registry and unexports its bus objects. It is
// a no-op for an unknown path, matching Session.Close's own idempotence.
func (m *SessionManager) Close(path dbus.ObjectPath) {
	m.mu.Lock()
	session, ok := m.sessions[path]
	if ok {
		delete(m.sessions, path)
		if owned := m.byOwner[session.owner]; owned != nil {
			delete(owned, path)
			if len(owned) == 0 {
				delete(m.byOwner, session.owner)
			}
		}
	}
	m.mu.Unlock()

	if ok {
		session.unexport()
		m.log.Info("session closed", slog.String("path", string(path)), slog.String("trace_id", session.traceID))
	}
}

// DropOwner tears down every session opened by owner. Wired to the bus's
// NameOwnerChanged signal: when a peer's unique name loses its owner, its
// in-flight sessions stop resolving and any GetSecret/SetSecret against
// them fails NoSession, matching spec section 4.5's client teardown
// contract.
func (m *SessionManager) DropOwner(owner string) {
	m.mu.Lock()
	paths := m.byOwner[owner]
	delete(m.byOwner, owner)
	sessions := make([]*Session, 0, len(paths))
	for path := range paths {
		if s, ok := m.sessions[path]; ok {
			sessions = append(sessions, s)
			delete(m.sessions, path)
		}
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.unexport()
		m.log.Info("session dropped on peer loss", slog.String("path", string(s.path)), slog.String("trace_id", s.traceID), slog.String("owner", owner))
	}
}

// CloseAll tears down every session, used during daemon shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[dbus.ObjectPath]*Session)
	m.byOwner = make(map[string]map[dbus.ObjectPath]struct{})
	m.mu.Unlock()

	for _, s := range sessions {
		s.unexport()
	}
}

// Path returns the session's object path.
func (s *Session) Path() dbus.ObjectPath { return s.path }

// Close implements org.freedesktop.Secret.Session.Close. The manager, not
// this method, owns registry bookkeeping; a client calling Close merely
// triggers the same unexport path that peer teardown uses.
func (s *Session) Close() *dbus.Error {
	s.unexport()
	return nil
}

func (s *Session) unexport() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.conn.Export(nil, s.path, dbtypes.SessionInterface)
	s.conn.Export(nil, s.path, dbtypes.IntrospectableInterface)
}

// Encrypt wraps plaintext for transport under this session's negotiated
// algorithm.
func (s *Session) Encrypt(plaintext []byte) (parameters, ciphertext []byte, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, secreterr.NoSessionf("session %s is closed", s.path)
	}
	parameters, ciphertext, err = s.crypto.Encrypt(plaintext)
	if err != nil {
		return nil, nil, secreterr.Crypto("encrypt", err)
	}
	return parameters, ciphertext, nil
}

// Decrypt reverses Encrypt.
func (s *Session) Decrypt(parameters, ciphertext []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, secreterr.NoSessionf("session %s is closed", s.path)
	}
	plaintext, err := s.crypto.Decrypt(parameters, ciphertext)
	if err != nil {
		return nil, secreterr.Crypto("decrypt", err)
	}
	return plaintext, nil
}

// introspect is a fixed introspection document exported alongside a live
// object's primary interface.
type introspect string

func (i introspect) Introspect() (string, *dbus.Error) {
	return string(i), nil
}
