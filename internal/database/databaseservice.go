package database

import "context"

// KeyValueStore persists string values under string keys.
type KeyValueStore interface {
	// Get returns the value stored under key and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// UpdateFunc receives the current value of a key and returns the value to
// store in its place. Returning an error leaves the key untouched.
type UpdateFunc func(old string, found bool) (string, error)

// Updater is implemented by stores that can rewrite one key without another
// writer sharing the store slipping in between the read and the write.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Update rewrites key through fn, atomically when store implements Updater
// and as a plain Get followed by Set otherwise.
func Update(ctx context.Context, store KeyValueStore, key string, fn UpdateFunc) error {
	if updater, ok := store.(Updater); ok {
		return updater.Update(ctx, key, fn)
	}
	old, found, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	value, err := fn(old, found)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, value)
}

// schemaCreator is implemented by stores that need tables before first use.
type schemaCreator interface {
	CreateDatabase(ctx context.Context) error
}

const kvTableSchema = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
