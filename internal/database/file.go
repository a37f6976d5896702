package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const lockFileName = ".lock"

// FileDatabase stores one file per key inside a directory. Writes take an
// exclusive file lock so separate processes sharing the directory serialize.
type FileDatabase struct {
	mu   sync.Mutex
	dir  string
	lock *flock.Flock
}

func NewFileDatabase(dir string) (*FileDatabase, error) {
	if dir == "" {
		return nil, errors.New("file database requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return &FileDatabase{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (f *FileDatabase) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".value")
}

func (f *FileDatabase) withLock(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", f.dir, err)
	}
	defer func() {
		_ = f.lock.Unlock()
	}()
	return fn()
}

func (f *FileDatabase) read(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileDatabase) write(key, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path(key))
}

func (f *FileDatabase) Get(_ context.Context, key string) (value string, found bool, err error) {
	err = f.withLock(func() error {
		value, found, err = f.read(key)
		return err
	})
	return value, found, err
}

func (f *FileDatabase) Set(_ context.Context, key, value string) error {
	return f.withLock(func() error {
		return f.write(key, value)
	})
}

// Update holds the directory lock from reading key until the new value is
// in place, so other processes see either the old or the new value.
func (f *FileDatabase) Update(_ context.Context, key string, fn UpdateFunc) error {
	return f.withLock(func() error {
		old, found, err := f.read(key)
		if err != nil {
			return err
		}
		value, err := fn(old, found)
		if err != nil {
			return err
		}
		return f.write(key, value)
	})
}

func (f *FileDatabase) Remove(_ context.Context, key string) error {
	return f.withLock(func() error {
		err := os.Remove(f.path(key))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (f *FileDatabase) Close() error {
	return f.lock.Close()
}
