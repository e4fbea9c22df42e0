// Package storage keeps the raw content of archived files, addressed by key.
package storage

import (
	"context"
	"fmt"
)

// Storage stores large objects
type Storage interface {
	// Store writes data under key, replacing any previous object.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve reads the object stored under key.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Type selects a storage backend
type Type string

const (
	// TypeFilesystem stores objects as files below a base path.
	TypeFilesystem Type = "filesystem"

	// TypeMemory keeps objects in process memory.
	TypeMemory Type = "memory"
)

// Config holds storage configuration.
type Config struct {
	Type Type

	// BasePath is the root directory for filesystem storage.
	BasePath string
}

// New creates a storage backend from configuration.
func New(config *Config) (Storage, error) {
	if config == nil {
		config = &Config{Type: TypeMemory}
	}

	switch config.Type {
	case TypeFilesystem:
		base := config.BasePath
		if base == "" {
			base = "."
		}
		return NewFilesystemStorage(base), nil

	case TypeMemory, "":
		return NewMemoryStorage(), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", config.Type)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
