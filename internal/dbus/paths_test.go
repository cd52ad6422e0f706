package dbus

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestCollectionPath(t *testing.T) {
	path := CollectionPath(0)
	expected := dbus.ObjectPath("/org/freedesktop/secrets/collection/c0")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}

func TestItemPath(t *testing.T) {
	path := ItemPath(7)
	expected := dbus.ObjectPath("/org/freedesktop/secrets/item/i7")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}

func TestSessionPath(t *testing.T) {
	path := SessionPath(3)
	expected := dbus.ObjectPath("/org/freedesktop/secrets/session/s3")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}

func TestPromptPath(t *testing.T) {
	path := PromptPath(1)
	expected := dbus.ObjectPath("/org/freedesktop/secrets/prompt/p1")
	if path != expected {
		t.Errorf("Expected %s, got %s", expected, path)
	}
}

func TestParseCollectionPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected uint64
		hasError bool
	}{
		{"/org/freedesktop/secrets/collection/c0", 0, false},
		{"/org/freedesktop/secrets/collection/c42", 42, false},
		{"/org/freedesktop/secrets/collection/default", 0, true},
		{"/org/freedesktop/secrets/session/c123", 0, true},
		{"/invalid/path", 0, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result, err := ParseCollectionPath(tc.path)
			if tc.hasError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestParseItemPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected uint64
		hasError bool
	}{
		{"/org/freedesktop/secrets/item/i0", 0, false},
		{"/org/freedesktop/secrets/item/i456", 456, false},
		{"/org/freedesktop/secrets/collection/c0", 0, true},
		{"/invalid/path", 0, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result, err := ParseItemPath(tc.path)
			if tc.hasError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestParseSessionPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected uint64
		hasError bool
	}{
		{"/org/freedesktop/secrets/session/s0", 0, false},
		{"/org/freedesktop/secrets/session/s123", 123, false},
		{"/org/freedesktop/secrets/collection/c0", 0, true},
		{"/invalid/path", 0, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result, err := ParseSessionPath(tc.path)
			if tc.hasError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestParsePromptPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected uint64
		hasError bool
	}{
		{"/org/freedesktop/secrets/prompt/p0", 0, false},
		{"/org/freedesktop/secrets/prompt/p123", 123, false},
		{"/org/freedesktop/secrets/collection/c0", 0, true},
		{"/invalid/path", 0, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result, err := ParsePromptPath(tc.path)
			if tc.hasError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestIsCollectionPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected bool
	}{
		{"/org/freedesktop/secrets/collection/c0", true},
		{"/org/freedesktop/secrets/collection/c12", true},
		{"/org/freedesktop/secrets/item/i0", false},
		{"/org/freedesktop/secrets/session/s123", false},
		{"/org/freedesktop/secrets", false},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result := IsCollectionPath(tc.path)
			if result != tc.expected {
				t.Errorf("IsCollectionPath(%s) = %v, expected %v", tc.path, result, tc.expected)
			}
		})
	}
}

func TestIsItemPath(t *testing.T) {
	tests := []struct {
		path     dbus.ObjectPath
		expected bool
	}{
		{"/org/freedesktop/secrets/item/i0", true},
		{"/org/freedesktop/secrets/item/i99", true},
		{"/org/freedesktop/secrets/collection/c0", false},
		{"/org/freedesktop/secrets/session/s123", false},
		{"/org/freedesktop/secrets", false},
	}

	for _, tc := range tests {
		t.Run(string(tc.path), func(t *testing.T) {
			result := IsItemPath(tc.path)
			if result != tc.expected {
				t.Errorf("IsItemPath(%s) = %v, expected %v", tc.path, result, tc.expected)
			}
		})
	}
}

func TestAliasPathRoundTrip(t *testing.T) {
	path := AliasPath("default")
	if path != "/org/freedesktop/secrets/aliases/default" {
		t.Fatalf("unexpected alias path: %s", path)
	}
	name, err := ParseAliasPath(path)
	if err != nil {
		t.Fatalf("ParseAliasPath: %v", err)
	}
	if name != "default" {
		t.Errorf("expected default, got %s", name)
	}
	if !IsAliasPath(path) {
		t.Errorf("expected IsAliasPath true")
	}
}
