package blob

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	return store
}

func TestNewFSStore_MissingRoot(t *testing.T) {
	if _, err := NewFSStore(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("NewFSStore() expected error for missing root")
	}
}

func TestNewFSStore_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFSStore(path); err == nil {
		t.Error("NewFSStore() expected error for non-directory root")
	}
}

func TestFSStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	data := []byte("large binary payload")
	ref, err := store.Put(ctx, "alice/f1", data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref != "alice/f1" {
		t.Errorf("Put() ref = %q, want alice/f1", ref)
	}

	got, err := store.Get(ctx, ref)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, ref); err == nil {
		t.Error("Get() after delete should fail")
	}

	// Deleting an object that is already gone is not an error.
	if err := store.Delete(ctx, ref); err != nil {
		t.Errorf("Delete() second call error = %v", err)
	}
}

func TestFSStore_Put_Overwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "alice/f1", []byte("v1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Put(ctx, "alice/f1", []byte("v2")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	got, err := store.Get(ctx, "alice/f1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get() = %q, want v2", got)
	}
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tests := []string{
		"../escape",
		"alice/../../escape",
		"/etc/passwd",
		"",
	}
	for _, key := range tests {
		if _, err := store.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q) expected error", key)
		}
		if _, err := store.Get(ctx, key); err == nil {
			t.Errorf("Get(%q) expected error", key)
		}
	}
}
