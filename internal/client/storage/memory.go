package storage

import (
	"context"
	"sync"
)

// Memory is the fallback CredentialStorage used when no persistent medium is
// available (unwritable home directory, tests). It never returns an error
// other than ErrNotFound; credentials simply do not survive the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// Compile-time check that Memory implements CredentialStorage
var _ CredentialStorage = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Возвращаем копию, чтобы вызывающий не менял внутреннее состояние
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
