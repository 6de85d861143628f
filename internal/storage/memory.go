package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend keeps the document in process memory. It is the default
// backend for development and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	body    []byte
	version int64
	meta    map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{meta: make(map[string]string)}
}

func (m *MemoryBackend) ReadDocument(_ context.Context) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.body == nil {
		return nil, 0, nil
	}
	return append([]byte(nil), m.body...), m.version, nil
}

func (m *MemoryBackend) WriteDocument(_ context.Context, body []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expected != AnyVersion && expected != m.version {
		return 0, fmt.Errorf("%w: expected version %d, stored %d", ErrStaleDocument, expected, m.version)
	}
	m.body = append([]byte(nil), body...)
	m.version++
	return m.version, nil
}

func (m *MemoryBackend) ReadMeta(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.meta[key]
	return v, ok, nil
}

func (m *MemoryBackend) WriteMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
