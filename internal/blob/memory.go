package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"drive-go/internal/drive"
)

// MemoryStore is an in-memory implementation of the BlobStore interface.
// It keeps files and directories in maps, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	files map[string][]byte // key -> content
	dirs  map[string]bool   // directory keys, parents included
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// Put stores content under key, creating parent directories.
func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirs[key] {
		return fmt.Errorf("%s is a directory", key)
	}
	m.addParents(key)
	m.files[key] = data
	return nil
}

// Get writes the content stored under key to w.
func (m *MemoryStore) Get(ctx context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, drive.ErrBlobNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}

	return nil
}

// MakeDir records key and its parents as directories.
func (m *MemoryStore) MakeDir(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; ok {
		return fmt.Errorf("%s is a file", key)
	}
	m.addParents(key)
	m.dirs[key] = true
	return nil
}

// Move renames key and everything beneath it.
func (m *MemoryStore) Move(ctx context.Context, key, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; !ok && !m.dirs[key] {
		return fmt.Errorf("%s: %w", key, drive.ErrBlobNotFound)
	}

	files := make(map[string][]byte)
	for k, data := range m.files {
		if nk, ok := rebase(k, key, newKey); ok {
			delete(m.files, k)
			files[nk] = data
		}
	}
	var dirs []string
	for k := range m.dirs {
		if nk, ok := rebase(k, key, newKey); ok {
			delete(m.dirs, k)
			dirs = append(dirs, nk)
		}
	}

	m.addParents(newKey)
	for k, data := range files {
		m.files[k] = data
	}
	for _, k := range dirs {
		m.dirs[k] = true
	}
	return nil
}

// Delete removes key and everything beneath it. Missing keys are ignored.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.files {
		if _, ok := rebase(k, key, key); ok {
			delete(m.files, k)
		}
	}
	for k := range m.dirs {
		if _, ok := rebase(k, key, key); ok {
			delete(m.dirs, k)
		}
	}
	return nil
}

// Exists reports whether a file or directory is stored at key.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[key]
	return ok || m.dirs[key], nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

// Len returns the number of stored files.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// addParents must be called with mu held.
func (m *MemoryStore) addParents(key string) {
	for dir := path.Dir(key); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
}

// rebase maps k from under prefix to under newPrefix. ok is false when k is
// neither prefix nor beneath it.
func rebase(k, prefix, newPrefix string) (string, bool) {
	if k == prefix {
		return newPrefix, true
	}
	if strings.HasPrefix(k, prefix+"/") {
		return newPrefix + k[len(prefix):], true
	}
	return "", false
}

// Compile-time check that MemoryStore implements drive.BlobStore interface
var _ drive.BlobStore = (*MemoryStore)(nil)
