package dbus

import (
	"github.com/godbus/dbus/v5"
)

// Secret represents a secret as transferred over D-Bus.
// Format: (oayays) - session path, parameters, value, content-type
type Secret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// ServiceInterface is the D-Bus interface name for the Secret Service root object.
const ServiceInterface = "org.freedesktop.Secret.Service"

// CollectionInterface is the D-Bus interface name for collections.
const CollectionInterface = "org.freedesktop.Secret.Collection"

// ItemInterface is the D-Bus interface name for items.
const ItemInterface = "org.freedesktop.Secret.Item"

// SessionInterface is the D-Bus interface name for sessions.
const SessionInterface = "org.freedesktop.Secret.Session"

// PromptInterface is the D-Bus interface name for prompts.
const PromptInterface = "org.freedesktop.Secret.Prompt"

// PropertiesInterface is the standard D-Bus property-access interface.
const PropertiesInterface = "org.freedesktop.DBus.Properties"

// IntrospectableInterface is the standard D-Bus introspection interface.
const IntrospectableInterface = "org.freedesktop.DBus.Introspectable"

// ServiceName is the well-known D-Bus name for the Secret Service.
const ServiceName = "org.freedesktop.secrets"

// ServicePath is the object path for the Secret Service root object.
const ServicePath = dbus.ObjectPath("/org/freedesktop/secrets")

// NullPath is the object path used wherever the interface requires an
// object reference but none is meaningful, e.g. "no prompt needed".
const NullPath = dbus.ObjectPath("/")

// CollectionBasePath is the path prefix under which collections live.
const CollectionBasePath = "/org/freedesktop/secrets/collection"

// ItemBasePath is the path prefix under which item objects are exported,
// one object per item path.
const ItemBasePath = "/org/freedesktop/secrets/item"

// SessionBasePath is the path prefix under which sessions live.
const SessionBasePath = "/org/freedesktop/secrets/session"

// PromptBasePath is the path prefix under which prompts live.
const PromptBasePath = "/org/freedesktop/secrets/prompt"

// AliasBasePath is the base path for collection aliases.
const AliasBasePath = "/org/freedesktop/secrets/aliases"

// DefaultAlias is the only alias CreateCollection accepts.
const DefaultAlias = "default"

// Algorithm names recognized by Service.OpenSession.
const (
	AlgorithmPlain = "plain"
	AlgorithmDH    = "dh-ietf1024-sha256-aes128-cbc-pkcs7"
)

// Well-known attribute keys the Service always ensures are present on an item.
const (
	AttrCollection = "xdg:collection"
	AttrSchema     = "xdg:schema"
)

// DefaultSchema is the attribute schema assumed when none is supplied.
const DefaultSchema = "org.freedesktop.Secret.Generic"

// Bus-level error names (spec section 6).
const (
	ErrInvalidArgs  = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrNotSupported = "org.freedesktop.DBus.Error.NotSupported"
	ErrNoSession    = "org.freedesktop.Secret.Error.NoSession"
	ErrNoSuchObject = "org.freedesktop.Secret.Error.NoSuchObject"
	ErrIsLocked     = "org.freedesktop.Secret.Error.IsLocked"
)
