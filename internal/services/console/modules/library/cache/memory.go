package cache

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]map[string][]byte
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: map[string]map[string][]byte{}}
}

func memoryKey(namespace string, kb string) string {
	return namespace + "\x00" + kb
}

// Get returns a copy of the stored value or ErrMiss.
func (m *Memory) Get(_ context.Context, namespace string, kb string, bucket string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[memoryKey(namespace, kb)][bucket]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), value...), nil
}

// Set stores value; a nil value deletes the bucket.
func (m *Memory) Set(_ context.Context, namespace string, kb string, bucket string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(namespace, kb)
	if value == nil {
		delete(m.entries[key], bucket)
		return nil
	}
	if m.entries[key] == nil {
		m.entries[key] = map[string][]byte{}
	}
	m.entries[key][bucket] = append([]byte(nil), value...)
	return nil
}

// Clear drops every bucket of kb.
func (m *Memory) Clear(_ context.Context, namespace string, kb string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memoryKey(namespace, kb))
	return nil
}
