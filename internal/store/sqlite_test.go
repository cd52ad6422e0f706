package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "secrets.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddItemThenMetadataAndSecretRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	attrs := map[string]string{"app": "x", "xdg:schema": "org.freedesktop.Secret.Generic"}
	if err := s.AddItem(ctx, "/item/i0", "test", attrs, []byte("hunter2"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	meta, ok, err := s.GetMetadata(ctx, "/item/i0")
	if err != nil || !ok {
		t.Fatalf("GetMetadata: ok=%v err=%v", ok, err)
	}
	if meta.Label != "test" {
		t.Errorf("label = %q, want test", meta.Label)
	}
	if meta.Modified.Before(meta.Created) {
		t.Errorf("modified %v before created %v", meta.Modified, meta.Created)
	}

	secret, ct, ok, err := s.GetSecret(ctx, "/item/i0")
	if err != nil || !ok {
		t.Fatalf("GetSecret: ok=%v err=%v", ok, err)
	}
	if string(secret) != "hunter2" || ct != "text/plain" {
		t.Errorf("secret = (%q, %q), want (hunter2, text/plain)", secret, ct)
	}

	exists, err := s.ItemExists(ctx, "/item/i0")
	if err != nil || !exists {
		t.Fatalf("ItemExists: exists=%v err=%v", exists, err)
	}
}

func TestCreatedUnchangedAcrossReads(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddItem(ctx, "/item/i0", "l", map[string]string{"a": "1"}, []byte("s"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	first, _, _ := s.GetMetadata(ctx, "/item/i0")
	if err := s.SetMetadataLabel(ctx, "/item/i0", "renamed"); err != nil {
		t.Fatalf("SetMetadataLabel: %v", err)
	}
	second, _, _ := s.GetMetadata(ctx, "/item/i0")
	if !first.Created.Equal(second.Created) {
		t.Errorf("created changed: %v -> %v", first.Created, second.Created)
	}
	if !first.Modified.Equal(second.Modified) {
		t.Errorf("modified advanced by set_metadata_label: %v -> %v (spec says it must not)", first.Modified, second.Modified)
	}
	if second.Label != "renamed" {
		t.Errorf("label = %q, want renamed", second.Label)
	}
}

func TestItemExistsIffMetadataAndSecretPresent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	exists, _ := s.ItemExists(ctx, "/item/i0")
	if exists {
		t.Fatalf("item_exists true before creation")
	}
	_, ok, _ := s.GetMetadata(ctx, "/item/i0")
	if ok {
		t.Fatalf("GetMetadata ok before creation")
	}

	if err := s.AddItem(ctx, "/item/i0", "l", map[string]string{"a": "1"}, []byte("s"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	exists, _ = s.ItemExists(ctx, "/item/i0")
	_, metaOK, _ := s.GetMetadata(ctx, "/item/i0")
	_, _, secretOK, _ := s.GetSecret(ctx, "/item/i0")
	if !exists || !metaOK || !secretOK {
		t.Fatalf("exists=%v metaOK=%v secretOK=%v, want all true", exists, metaOK, secretOK)
	}

	if err := s.DeleteItem(ctx, "/item/i0"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	exists, _ = s.ItemExists(ctx, "/item/i0")
	_, metaOK, _ = s.GetMetadata(ctx, "/item/i0")
	_, _, secretOK, _ = s.GetSecret(ctx, "/item/i0")
	if exists || metaOK || secretOK {
		t.Fatalf("exists=%v metaOK=%v secretOK=%v, want all false after delete", exists, metaOK, secretOK)
	}
}

func TestSetAttributesFullyReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddItem(ctx, "/item/i0", "l", map[string]string{"x": "1"}, []byte("s"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := s.SetAttributes(ctx, "/item/i0", map[string]string{"y": "2"}); err != nil {
		t.Fatalf("SetAttributes: %v", err)
	}
	attrs, ok, err := s.GetAttributes(ctx, "/item/i0")
	if err != nil || !ok {
		t.Fatalf("GetAttributes: ok=%v err=%v", ok, err)
	}
	if _, present := attrs["x"]; present {
		t.Errorf("old attribute x survived full replace: %v", attrs)
	}
	if attrs["y"] != "2" {
		t.Errorf("attrs = %v, want y=2", attrs)
	}
}

func TestFindItemsSupersetSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddItem(ctx, "/item/i0", "l0", map[string]string{"a": "1", "b": "2"}, []byte("s0"), "text/plain"); err != nil {
		t.Fatalf("AddItem i0: %v", err)
	}
	if err := s.AddItem(ctx, "/item/i1", "l1", map[string]string{"a": "1", "b": "3"}, []byte("s1"), "text/plain"); err != nil {
		t.Fatalf("AddItem i1: %v", err)
	}

	both, err := s.FindItems(ctx, map[string]string{"a": "1"})
	if err != nil {
		t.Fatalf("FindItems: %v", err)
	}
	if len(both) != 2 {
		t.Errorf("FindItems({a:1}) = %v, want both items", both)
	}

	only0, err := s.FindItems(ctx, map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("FindItems: %v", err)
	}
	if len(only0) != 1 || only0[0] != "/item/i0" {
		t.Errorf("FindItems({a:1,b:2}) = %v, want [/item/i0]", only0)
	}
}

func TestDeleteItemRemovesFromSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.AddItem(ctx, "/item/i0", "l", map[string]string{"a": "1"}, []byte("s"), "text/plain"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := s.DeleteItem(ctx, "/item/i0"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	results, err := s.FindItems(ctx, map[string]string{"a": "1"})
	if err != nil {
		t.Fatalf("FindItems: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("FindItems after delete = %v, want empty", results)
	}
}

func TestSetSecretRejectsUnknownObject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.SetSecret(ctx, "/item/does-not-exist", []byte("x"), "text/plain"); err == nil {
		t.Fatalf("expected error setting secret on nonexistent object")
	}
}
