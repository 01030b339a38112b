package manifest

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open manifest store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close manifest store: %v", err)
		}
	})
	return store
}

func testEntries() []Entry {
	return []Entry{
		{Fingerprint: "hash1", Handle: "msg-1", Size: 10},
		{Fingerprint: "hash2", Handle: "msg-2", Size: 10},
		{Fingerprint: "hash3", Handle: "msg-3", Size: 5, Compressed: true},
	}
}

func TestStoreCreateGetDelete(t *testing.T) {
	store := openTestStore(t)

	m := NewFileManifest("alice", "report.pdf", 25, testEntries())
	if err := store.Create(m); err != nil {
		t.Fatalf("failed to create manifest: %v", err)
	}

	got, err := store.Get("alice", "report.pdf")
	if err != nil {
		t.Fatalf("failed to get manifest: %v", err)
	}
	if got.Owner != "alice" || got.FileName != "report.pdf" || got.FileSize != 25 {
		t.Errorf("retrieved manifest header does not match: %+v", got)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("got %d entries, expected 3", len(got.Entries))
	}
	for i, e := range got.Entries {
		if e != m.Entries[i] {
			t.Errorf("entry %d does not match: got %+v, expected %+v", i, e, m.Entries[i])
		}
	}

	exists, err := store.Exists("alice", "report.pdf")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if !exists {
		t.Error("exists returned false for a stored manifest")
	}

	if err := store.Delete("alice", "report.pdf"); err != nil {
		t.Fatalf("failed to delete manifest: %v", err)
	}
	if _, err := store.Get("alice", "report.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete returned %v, expected ErrNotFound", err)
	}
}

func TestStoreCreateRejectsDuplicateKey(t *testing.T) {
	store := openTestStore(t)

	m := NewFileManifest("alice", "report.pdf", 25, testEntries())
	if err := store.Create(m); err != nil {
		t.Fatalf("failed to create manifest: %v", err)
	}

	err := store.Create(NewFileManifest("alice", "report.pdf", 5, testEntries()[:1]))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate create returned %v, expected ErrExists", err)
	}

	// The original manifest must be untouched.
	got, err := store.Get("alice", "report.pdf")
	if err != nil {
		t.Fatalf("failed to get manifest: %v", err)
	}
	if got.FileSize != 25 || len(got.Entries) != 3 {
		t.Errorf("duplicate create modified the stored manifest: %+v", got)
	}
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Get("alice", "nope.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get returned %v, expected ErrNotFound", err)
	}
	exists, err := store.Exists("alice", "nope.txt")
	if err != nil {
		t.Fatalf("exists check failed: %v", err)
	}
	if exists {
		t.Error("exists returned true for a missing manifest")
	}
}

func TestStoreDeleteMissingIsNotAnError(t *testing.T) {
	store := openTestStore(t)
	if err := store.Delete("alice", "nope.txt"); err != nil {
		t.Errorf("delete of missing manifest returned %v", err)
	}
}

func TestStoreListIsolatesOwners(t *testing.T) {
	store := openTestStore(t)

	files := []struct {
		owner, name string
	}{
		{"alice", "a.txt"},
		{"alice", "b.txt"},
		{"bob", "c.txt"},
	}
	for _, f := range files {
		m := NewFileManifest(f.owner, f.name, 5, testEntries()[:1])
		if err := store.Create(m); err != nil {
			t.Fatalf("failed to create manifest for %s/%s: %v", f.owner, f.name, err)
		}
	}

	names, err := store.ListFilenames("alice")
	if err != nil {
		t.Fatalf("failed to list filenames: %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Errorf("unexpected filenames for alice: %v", names)
	}

	manifests, err := store.List("bob")
	if err != nil {
		t.Fatalf("failed to list manifests: %v", err)
	}
	if len(manifests) != 1 || manifests[0].FileName != "c.txt" {
		t.Errorf("unexpected manifests for bob: %+v", manifests)
	}

	empty, err := store.List("carol")
	if err != nil {
		t.Fatalf("failed to list manifests for empty owner: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("owner with no files listed %d manifests", len(empty))
	}
}

func TestStoreAllowsColonsInFilenames(t *testing.T) {
	store := openTestStore(t)

	m := NewFileManifest("alice", "backup:2024.tar", 5, testEntries()[:1])
	if err := store.Create(m); err != nil {
		t.Fatalf("failed to create manifest: %v", err)
	}
	names, err := store.ListFilenames("alice")
	if err != nil {
		t.Fatalf("failed to list filenames: %v", err)
	}
	if len(names) != 1 || names[0] != "backup:2024.tar" {
		t.Errorf("filename with colon round-tripped as %v", names)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store := openTestStore(t)

	if err := store.Create(NewFileManifest("bad:owner", "f.txt", 1, nil)); err == nil {
		t.Error("create accepted owner containing the key separator")
	}
	if err := store.Create(NewFileManifest("", "f.txt", 1, nil)); err == nil {
		t.Error("create accepted empty owner")
	}
	if err := store.Create(NewFileManifest("alice", "", 1, nil)); err == nil {
		t.Error("create accepted empty filename")
	}
}
