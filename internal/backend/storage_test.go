package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	storage, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage error: %v", err)
	}

	if err := storage.Save(ctx, "abcd1234.png", "image/png", strings.NewReader("png-bytes"), 9); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	rc, err := storage.Open(ctx, "abcd1234.png")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := storage.Save(ctx, "abcd1234.png", "image/png", strings.NewReader("other"), 5); err == nil {
		t.Fatal("expected existing file not to be overwritten")
	}
}

func TestLocalStorage_RejectsUnsafeNames(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage error: %v", err)
	}
	for _, name := range []string{"", "../escape.png", "a/b.png", ".hidden", `..\win.png`} {
		if err := storage.Save(ctx, name, "", strings.NewReader("x"), 1); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q): expected ErrInvalidName, got %v", name, err)
		}
		if _, err := storage.Open(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestLocalStorage_OpenMissing(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage error: %v", err)
	}
	if _, err := storage.Open(context.Background(), "missing.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestLocalStorage_FailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage error: %v", err)
	}
	if err := storage.Save(context.Background(), "broken.png", "", brokenReader{}, -1); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial file to be removed, stat err=%v", err)
	}
}

func TestNewStorage_Unsupported(t *testing.T) {
	if _, err := NewStorage(context.Background(), StorageConfig{Type: "ftp"}); err == nil {
		t.Fatal("expected error for unsupported storage type")
	}
}
