package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/baltrad/bdb-go/runtime/dberr"
)

// FilesystemStorage implements Storage with one file per object.
// Objects are spread over subdirectories named after the first two key bytes.
type FilesystemStorage struct {
	fs afero.Fs
}

// NewFilesystemStorage stores objects below basePath on the host filesystem.
func NewFilesystemStorage(basePath string) *FilesystemStorage {
	return NewFilesystemStorageFs(afero.NewBasePathFs(afero.NewOsFs(), basePath))
}

// NewFilesystemStorageFs stores objects on fs.
func NewFilesystemStorageFs(fs afero.Fs) *FilesystemStorage {
	return &FilesystemStorage{fs: fs}
}

func (s *FilesystemStorage) objectPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", dberr.Value("invalid object key %q", key)
	}
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return path.Join("/", prefix, key), nil
}

// Store writes data under key.
func (s *FilesystemStorage) Store(ctx context.Context, key string, data []byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Retrieve reads the object under key.
func (s *FilesystemStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	p, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dberr.Lookup("no stored object %q", key)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes the object under key.
func (s *FilesystemStorage) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists checks if an object is stored under key.
func (s *FilesystemStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	p, err := s.objectPath(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
