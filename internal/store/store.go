package store

import (
	"context"
	"time"
)

// Metadata is the row shape of the items relation: (object, label, created,
// modified).
type Metadata struct {
	Label    string
	Created  time.Time
	Modified time.Time
}

// Store is the relational persistence layer described in spec section 4.2:
// three logical relations (items, attributes, secrets) addressed by the
// item's object path string. Store never sees a dbus.ObjectPath directly —
// callers pass the path rendered as a string — which keeps this package
// free of any bus dependency.
type Store interface {
	// AddItem inserts one row into each relation. created = modified = now.
	// One attribute row per (key, value) in attrs. Atomic.
	AddItem(ctx context.Context, object, label string, attrs map[string]string, secret []byte, contentType string) error

	// FindItems returns the set of object paths whose attribute set is a
	// superset of match (every key/value pair must be present). Empty match
	// is undefined; callers must ensure at least one pair.
	FindItems(ctx context.Context, match map[string]string) ([]string, error)

	// GetMetadata returns the item's metadata row, or ok=false if absent.
	GetMetadata(ctx context.Context, object string) (meta Metadata, ok bool, err error)

	// SetMetadataLabel updates label only; modified is NOT advanced.
	SetMetadataLabel(ctx context.Context, object, label string) error

	// GetAttributes returns the item's stored attribute rows, or ok=false
	// if the item does not exist. An existing item with no attribute rows
	// yields an empty map with ok=true.
	GetAttributes(ctx context.Context, object string) (attrs map[string]string, ok bool, err error)

	// SetAttributes fully replaces the item's attribute rows: deletes all
	// existing rows for object, then inserts attrs.
	SetAttributes(ctx context.Context, object string, attrs map[string]string) error

	// GetSecret returns the item's raw secret bytes and content type, or
	// ok=false if absent.
	GetSecret(ctx context.Context, object string) (secret []byte, contentType string, ok bool, err error)

	// SetSecret overwrites the item's secret bytes and content type.
	SetSecret(ctx context.Context, object string, secret []byte, contentType string) error

	// DeleteItem deletes rows from all three relations for object. Atomic.
	DeleteItem(ctx context.Context, object string) error

	// ItemExists reports whether a metadata row exists for object.
	ItemExists(ctx context.Context, object string) (bool, error)

	// Close releases the underlying engine handle.
	Close() error
}
