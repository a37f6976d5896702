// Package gallery keeps the ordered list of successfully uploaded images and
// mirrors it into a key-value store after every change.
//
// Every change is merged into the persisted list as it is at that moment, so
// several processes sharing one store do not overwrite each other. Persisting
// is best effort: a failed write is reported to the caller but the change
// still applies to the in-memory list.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/imgdrop/internal/database"
)

// DefaultKey is the key the serialized gallery is stored under.
const DefaultKey = "savedImages"

var (
	ErrPersistenceWrite = errors.New("failed to persist gallery")
	ErrIndexOutOfRange  = errors.New("gallery index out of range")
	ErrInvalidImage     = errors.New("saved image requires a url")
)

type SavedImage struct {
	Preview string `json:"preview"`
	URL     string `json:"url"`
}

type Store struct {
	mu      sync.Mutex
	backend database.KeyValueStore
	key     string
	images  []SavedImage
}

func NewStore(backend database.KeyValueStore, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		backend: backend,
		key:     key,
	}
}

// Load replaces the in-memory gallery with the persisted one. A value that
// cannot be parsed is deleted and the gallery starts empty; only a failing
// read is returned as an error.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = nil
	raw, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to read gallery %s: %w", s.key, err)
	}
	if !found {
		return nil
	}

	images, err := decode(raw)
	if err != nil {
		slog.Warn("discarding corrupt gallery", "key", s.key, "error", err)
		if rmErr := s.backend.Remove(ctx, s.key); rmErr != nil {
			slog.Error("failed to remove corrupt gallery", "key", s.key, "error", rmErr)
		}
		return nil
	}
	s.images = images
	slog.Debug("gallery loaded", "key", s.key, "count", len(images))
	return nil
}

func decode(raw string) ([]SavedImage, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var images []SavedImage
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Images returns a copy of the gallery in order.
func (s *Store) Images() []SavedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SavedImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Append adds one image to the end of the gallery and persists the result.
func (s *Store) Append(ctx context.Context, preview, url string) error {
	if url == "" {
		return ErrInvalidImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	image := SavedImage{Preview: preview, URL: url}
	err := s.mutateLocked(ctx, func(images []SavedImage) []SavedImage {
		return append(images, image)
	})
	if err != nil {
		slog.Error("failed to save image to gallery", "key", s.key, "url", url, "error", err)
		return err
	}
	return nil
}

// RemoveAt deletes the image at index and persists the remainder. If another
// writer already removed that image, only the refreshed list is kept.
func (s *Store) RemoveAt(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, index, len(s.images))
	}
	target := s.images[index]

	err := s.mutateLocked(ctx, func(images []SavedImage) []SavedImage {
		return without(images, target)
	})
	if err != nil {
		slog.Error("failed to update gallery after removal", "key", s.key, "index", index, "error", err)
		return err
	}
	return nil
}

func without(images []SavedImage, target SavedImage) []SavedImage {
	for i, image := range images {
		if image == target {
			return append(images[:i:i], images[i+1:]...)
		}
	}
	return images
}

// ClearAll empties the gallery and deletes the persisted key.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = nil
	if err := s.backend.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	return nil
}

// mutateLocked applies change to the persisted gallery inside one
// read-modify-write and adopts the result. When persisting fails, change is
// applied to the in-memory list instead.
func (s *Store) mutateLocked(ctx context.Context, change func([]SavedImage) []SavedImage) error {
	var merged []SavedImage
	err := database.Update(ctx, s.backend, s.key, func(old string, found bool) (string, error) {
		var current []SavedImage
		if found {
			images, err := decode(old)
			if err != nil {
				slog.Warn("overwriting corrupt gallery", "key", s.key, "error", err)
			} else {
				current = images
			}
		}
		merged = change(current)
		return encode(merged)
	})
	if err != nil {
		s.images = change(s.images)
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	s.images = merged
	return nil
}

func encode(images []SavedImage) (string, error) {
	if images == nil {
		images = []SavedImage{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
