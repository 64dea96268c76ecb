package artifact

import (
	"testing"

	"github.com/chan4lk/autogen-workflows/core"
)

var _ core.ArtifactStore = (*FileStore)(nil)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := store.Save("s1", "final_document.md", []byte("# Report")); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := store.Get("s1", "final_document.md")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(out) != "# Report" {
		t.Fatalf("unexpected content %q", string(out))
	}

	ids, err := store.List("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "final_document.md" {
		t.Fatalf("unexpected ids %v", ids)
	}

	if err := store.Delete("s1", "final_document.md"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("s1", "final_document.md"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_MissingSession(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ids, err := store.List("ghost")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
	if _, err := store.Get("ghost", "doc"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_RejectsPathSegments(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save("s1", "../escape", []byte("x")); err == nil {
		t.Fatal("expected error for path traversal id")
	}
	if err := store.Save("a/b", "doc", []byte("x")); err == nil {
		t.Fatal("expected error for separator in session id")
	}
}
