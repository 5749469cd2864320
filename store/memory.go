package store

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// MemoryBackend keeps objects in a map guarded by an RWMutex. It backs
// tests, examples, and throwaway builds; nothing survives the process.
// Data is copied on save and retrieval to avoid accidental external
// mutation of internal buffers.
type MemoryBackend struct {
	sync.RWMutex
	Name    string
	objects map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{Name: name, objects: make(map[string][]byte)}
}

// GetName returns the name of the store this backend serves.
func (m *MemoryBackend) GetName() string {
	return m.Name
}

// Get returns a copy of the stored bytes or ErrNotFound.
func (m *MemoryBackend) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.RLock()
	defer m.RUnlock()
	data, ok := m.objects[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Put stores a copy of the bytes under the key.
func (m *MemoryBackend) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Lock()
	defer m.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key.String()] = cp
	return nil
}

// Delete removes the object if present or returns ErrNotFound.
func (m *MemoryBackend) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.objects[key.String()]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(m.objects, key.String())
	return nil
}

// List returns the keys under the prefix, sorted. The slice is a snapshot
// and safe for caller mutation.
func (m *MemoryBackend) List(_ context.Context, prefix Key) ([]Key, error) {
	m.RLock()
	defer m.RUnlock()
	keys := []Key{}
	for name := range m.objects {
		key, err := ParseKey(name)
		if err != nil {
			continue
		}
		if len(prefix) > 0 && !key.HasPrefix(prefix) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// GetURL returns a memory:// URL, mostly useful in logs and tests.
func (m *MemoryBackend) GetURL(key Key) *url.URL {
	return &url.URL{Scheme: "memory", Host: m.Name, Path: "/" + key.String()}
}
