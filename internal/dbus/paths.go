package dbus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
)

// CollectionPath returns the object path for the collection allocated at
// counter value n: "<svc-prefix>/collection/c<n>".
func CollectionPath(n uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/c%d", CollectionBasePath, n))
}

// ItemPath returns the object path for the item allocated at counter value n:
// "<svc-prefix>/item/i<n>". Item paths are flat; collection membership is an
// attribute (xdg:collection), never part of the path.
func ItemPath(n uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/i%d", ItemBasePath, n))
}

// SessionPath returns the object path for the session allocated at counter
// value n: "<svc-prefix>/session/s<n>".
func SessionPath(n uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/s%d", SessionBasePath, n))
}

// PromptPath returns the object path for the prompt allocated at counter
// value n: "<svc-prefix>/prompt/p<n>".
func PromptPath(n uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/p%d", PromptBasePath, n))
}

// AliasPath returns the object path published for a collection alias.
func AliasPath(alias string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%s", AliasBasePath, alias))
}

func parseCounted(path dbus.ObjectPath, prefix, sigil string) (uint64, error) {
	full := prefix + "/" + sigil
	s := string(path)
	if !strings.HasPrefix(s, full) {
		return 0, fmt.Errorf("invalid path: %s", path)
	}
	rest := strings.TrimPrefix(s, full)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, fmt.Errorf("invalid path: %s", path)
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid path: %s", path)
	}
	return n, nil
}

// ParseCollectionPath extracts the counter value from a collection path.
func ParseCollectionPath(path dbus.ObjectPath) (uint64, error) {
	return parseCounted(path, CollectionBasePath, "c")
}

// ParseItemPath extracts the counter value from an item path.
func ParseItemPath(path dbus.ObjectPath) (uint64, error) {
	return parseCounted(path, ItemBasePath, "i")
}

// ParseSessionPath extracts the counter value from a session path.
func ParseSessionPath(path dbus.ObjectPath) (uint64, error) {
	return parseCounted(path, SessionBasePath, "s")
}

// ParsePromptPath extracts the counter value from a prompt path.
func ParsePromptPath(path dbus.ObjectPath) (uint64, error) {
	return parseCounted(path, PromptBasePath, "p")
}

// ParseAliasPath extracts the alias name from an alias path.
func ParseAliasPath(path dbus.ObjectPath) (string, error) {
	prefix := AliasBasePath + "/"
	if !strings.HasPrefix(string(path), prefix) {
		return "", fmt.Errorf("invalid alias path: %s", path)
	}
	return strings.TrimPrefix(string(path), prefix), nil
}

// IsCollectionPath reports whether path names a collection object.
func IsCollectionPath(path dbus.ObjectPath) bool {
	_, err := ParseCollectionPath(path)
	return err == nil
}

// IsItemPath reports whether path has the shape of an item object path.
func IsItemPath(path dbus.ObjectPath) bool {
	_, err := ParseItemPath(path)
	return err == nil
}

// IsSessionPath reports whether path names a session object.
func IsSessionPath(path dbus.ObjectPath) bool {
	_, err := ParseSessionPath(path)
	return err == nil
}

// IsAliasPath reports whether path lies under the alias namespace.
func IsAliasPath(path dbus.ObjectPath) bool {
	return strings.HasPrefix(string(path), AliasBasePath+"/")
}
