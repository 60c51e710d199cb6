package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreOpenAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "article.txt")
	if err := os.WriteFile(path, []byte("white house briefing"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := NewLocalStore()
	data, err := ReadAll(context.Background(), s, path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "white house briefing" {
		t.Errorf("ReadAll = %q, want %q", data, "white house briefing")
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s := NewLocalStore()
	_, err := s.Open(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error opening missing file")
	}
}

func TestLocalStoreExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8}, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s := NewLocalStore()

	ok, err := s.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("Exists = false for existing file")
	}

	ok, err = s.Exists(context.Background(), filepath.Join(dir, "missing.jpg"))
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists = true for missing file")
	}

	// Directories are not files
	ok, err = s.Exists(context.Background(), dir)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists = true for directory")
	}
}

func TestLocalStoreExistsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewLocalStore()
	if _, err := s.Exists(ctx, "anything"); err == nil {
		t.Fatal("expected context error after cancel")
	}
}

func TestLocalStoreJoin(t *testing.T) {
	s := NewLocalStore()
	got := s.Join("root", "origin", "1234.jpg")
	want := filepath.Join("root", "origin", "1234.jpg")
	if got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}
