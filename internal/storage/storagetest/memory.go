// Package storagetest provides an in-memory storage.Storage for tests.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
)

// MemoryStorage keeps objects in a map. SaveErr, DeleteErr and ExistsErr,
// when set, are returned by the matching method instead of doing any work.
// Like a network backend, every method fails once ctx is done.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte

	SaveErr   error
	DeleteErr error
	ExistsErr error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStorage) Save(ctx context.Context, name string, data io.Reader) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	_, err := io.Copy(&buf, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = buf.Bytes()
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, name string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[name]
	return ok, nil
}

func (m *MemoryStorage) URL(name string) string {
	return "/uploads/gallery/" + name
}

// Get returns the stored bytes for name.
func (m *MemoryStorage) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, ok
}

// Names returns all stored object names, sorted.
func (m *MemoryStorage) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
