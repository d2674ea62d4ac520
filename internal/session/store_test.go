package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreWriteAndRead(t *testing.T) {
	store := NewStore(t.TempDir())

	path, err := store.Write(context.Background(), "family", "parent(tom,bob).\n")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.HasSuffix(path, "family.pl") {
		t.Errorf("expected .pl extension on %q", path)
	}

	text, readPath, err := store.Read(context.Background(), "family")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if text != "parent(tom,bob).\n" {
		t.Errorf("expected stored text back, got %q", text)
	}
	if readPath != path {
		t.Errorf("expected path %q, got %q", path, readPath)
	}
}

func TestStoreExtensionIsIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.Write(context.Background(), "family.pl", "parent(tom,bob).\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// "family" and "family.pl" name the same session.
	text, _, err := store.Read(context.Background(), "family")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if text == "" {
		t.Error("expected content for bare name")
	}

	path, err := store.Resolve("family.pl")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if strings.HasSuffix(path, ".pl.pl") {
		t.Errorf("extension appended twice: %q", path)
	}
}

func TestStoreWriteOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	if _, err := store.Write(context.Background(), "kb", "old(1).\n"); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if _, err := store.Write(context.Background(), "kb", "new(2).\n"); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	text, _, err := store.Read(context.Background(), "kb")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if text != "new(2).\n" {
		t.Errorf("expected truncating overwrite, got %q", text)
	}
}

func TestStoreResolveRejectsEscapes(t *testing.T) {
	store := NewStore(t.TempDir())

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"parent traversal", "../evil"},
		{"nested traversal", "a/../../evil"},
		{"absolute path", "/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Resolve(tt.input)
			if !errors.Is(err, ErrInvalidSessionName) {
				t.Errorf("expected ErrInvalidSessionName, got %v", err)
			}
		})
	}
}

func TestStoreReadMissingSession(t *testing.T) {
	store := NewStore(t.TempDir())

	_, _, err := store.Read(context.Background(), "ghost")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.Write(context.Background(), "kb", "a(1).\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Write(ctx, "kb", "b(2).\n"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Write, got %v", err)
	}
	if _, _, err := store.Read(ctx, "kb"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Read, got %v", err)
	}

	// The canceled write must not have touched the file.
	text, _, err := store.Read(context.Background(), "kb")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if text != "a(1).\n" {
		t.Errorf("expected original content intact, got %q", text)
	}
}

func TestStoreWriteCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "sessions")
	store := NewStore(root)

	if _, err := store.Write(context.Background(), "kb", "a(1).\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "kb.pl")); err != nil {
		t.Errorf("expected session file on disk: %v", err)
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if _, err := store.Write(context.Background(), "beta", "b(1).\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := store.Write(context.Background(), "alpha", "a(1).\n"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Non-session clutter must not list.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].Name != "alpha" || infos[1].Name != "beta" {
		t.Errorf("expected sorted names alpha, beta; got %q, %q", infos[0].Name, infos[1].Name)
	}
	if infos[0].SizeBytes == 0 {
		t.Error("expected non-zero size")
	}
	if infos[0].ModifiedAt.IsZero() {
		t.Error("expected modification time")
	}
}

func TestStoreListMissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))

	infos, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("expected empty list, got %d entries", len(infos))
	}
}
