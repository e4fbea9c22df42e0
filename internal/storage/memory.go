package storage

import (
	"context"
	"sync"

	"github.com/baltrad/bdb-go/runtime/dberr"
)

// MemoryStorage implements Storage in process memory.
type MemoryStorage struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
	}
}

// Store writes a copy of data under key.
func (ms *MemoryStorage) Store(ctx context.Context, key string, data []byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.objects[key] = append([]byte(nil), data...)
	return nil
}

// Retrieve returns a copy of the object under key.
func (ms *MemoryStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.objects[key]
	if !ok {
		return nil, dberr.Lookup("no stored object %q", key)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the object under key.
func (ms *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.objects, key)
	return nil
}

// Exists checks if an object is stored under key.
func (ms *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.objects[key]
	return ok, nil
}
