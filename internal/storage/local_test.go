package storage

import (
	"bytes"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	key := "user-1/sub-1/license_front.jpg"
	content := []byte("fake jpeg bytes")

	path, err := store.Save(key, content)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != key {
		t.Errorf("Save returned path %q, want %q", path, key)
	}

	if !store.Exists(path) {
		t.Error("Exists = false for a saved blob")
	}

	got, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Read = %q, want %q", got, content)
	}
}

func TestLocalStoreProfileKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if _, err := store.Save("user-1.png", []byte("png")); err != nil {
		t.Fatalf("Save profile photo key: %v", err)
	}
	if !store.Exists("user-1.png") {
		t.Error("profile photo key not found after save")
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, key := range []string{"../outside.txt", "a/../../outside.txt", "/etc/passwd", "."} {
		if _, err := store.Save(key, []byte("x")); err == nil {
			t.Errorf("Save(%q) accepted a path-escaping key", key)
		}
		if store.Exists(key) {
			t.Errorf("Exists(%q) = true for invalid key", key)
		}
	}
}

func TestLocalStoreReadMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	if _, err := store.Read("user-9/none/missing.jpg"); err == nil {
		t.Error("Read of missing blob returned no error")
	}
	if store.Exists("user-9/none/missing.jpg") {
		t.Error("Exists = true for missing blob")
	}
}
