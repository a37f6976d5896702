package database

import (
	"context"
	"sync"
)

// MemoryDatabase keeps values in process memory. Nothing survives a restart.
type MemoryDatabase struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{values: make(map[string]string)}
}

func (m *MemoryDatabase) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryDatabase) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryDatabase) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, found := m.values[key]
	value, err := fn(old, found)
	if err != nil {
		return err
	}
	m.values[key] = value
	return nil
}

func (m *MemoryDatabase) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryDatabase) Close() error {
	return nil
}
