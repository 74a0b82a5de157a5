package storage

import (
	"context"
	"sync"
)

// MemoryStorage is an in-process StorageInterface for tests and local runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	bucket  string
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte), bucket: bucket}
}

func (m *MemoryStorage) BucketName() string {
	return m.bucket
}

func (m *MemoryStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf
	return nil
}

func (m *MemoryStorage) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) Ping(context.Context) error {
	return nil
}

// Keys returns the stored keys.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
