package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Backend is durable key/value storage for encoded values.
type Backend interface {
	// Get returns the raw value for key. ok is false when key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Put stores value under key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// FileBackend stores all keys in one JSON object on disk. Writes take an OS
// file lock and replace the file atomically (temp file + rename).
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path. The file and its
// directory are created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Get implements Backend.
func (b *FileBackend) Get(key string) ([]byte, bool, error) {
	values, err := b.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Put implements Backend.
func (b *FileBackend) Put(key string, value []byte) error {
	return b.withLock(func() error {
		values, err := b.load()
		if err != nil {
			return err
		}
		values[key] = json.RawMessage(value)
		return b.save(values)
	})
}

// Delete implements Backend.
func (b *FileBackend) Delete(key string) error {
	return b.withLock(func() error {
		values, err := b.load()
		if err != nil {
			return err
		}
		if _, ok := values[key]; !ok {
			return nil
		}
		delete(values, key)
		return b.save(values)
	})
}

// Keys returns all stored keys.
func (b *FileBackend) Keys() ([]string, error) {
	values, err := b.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys, nil
}

func (b *FileBackend) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}

	values := make(map[string]json.RawMessage)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return values, nil
}

func (b *FileBackend) save(values map[string]json.RawMessage) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	// Settings may hold the auth token.
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, b.path)
}

// withLock serializes writers across processes using a sidecar lock file.
func (b *FileBackend) withLock(fn func() error) error {
	lockPath := b.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer unlockFile(f)

	return fn()
}
