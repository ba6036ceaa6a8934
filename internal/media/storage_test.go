package media

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestStore_SaveAndRemove(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())

	path, err := store.Save("belediye", "a.png", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists("belediye", "a.png") {
		t.Fatalf("saved file should exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Remove("belediye", "a.png"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Exists("belediye", "a.png") {
		t.Fatalf("removed file should be gone")
	}

	// Removing again is not an error.
	if err := store.Remove("belediye", "a.png"); err != nil {
		t.Fatalf("Remove of missing file: %v", err)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, zerolog.Nop())

	if _, err := store.Save("belediye", "a.png", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(store.Dir("belediye"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.png" {
		t.Fatalf("expected only a.png, got %v", entries)
	}
}

func TestStore_PathStripsDirectories(t *testing.T) {
	store := NewStore("/media", zerolog.Nop())

	if got := store.Path("belediye", "../../etc/passwd"); got != "/media/belediye/passwd" {
		t.Fatalf("path traversal not neutralized: %s", got)
	}
}
