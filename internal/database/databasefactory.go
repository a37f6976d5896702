package database

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeSQLite   = "sqlite"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
)

func NewDatabase(ctx context.Context, databaseType, connectionString string) (database KeyValueStore, err error) {
	switch databaseType {
	case TypeMemory, "":
		database = NewMemoryDatabase()
	case TypeFile:
		database, err = NewFileDatabase(connectionString)
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString)
	case TypePostgres:
		database, err = NewPostgresDatabase(ctx, connectionString)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	// Ensure tables exist (idempotent), important for in-memory SQLite
	if creator, ok := database.(schemaCreator); ok {
		slog.Debug("initializing database schema (ensuring tables exist)", "type", databaseType)
		if err = creator.CreateDatabase(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return database, nil
}
