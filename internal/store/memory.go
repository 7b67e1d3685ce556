package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[Kind]map[string][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[Kind]map[string][]byte)}
}

// NewMemory returns a Store backed by process memory.
func NewMemory() *Documents {
	return New(NewMemoryBackend())
}

func (m *MemoryBackend) Get(_ context.Context, kind Kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (m *MemoryBackend) Put(_ context.Context, kind Kind, id string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[kind] == nil {
		m.docs[kind] = make(map[string][]byte)
	}
	m.docs[kind][id] = append([]byte(nil), doc...)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[kind][id]; !ok {
		return ErrNotFound
	}
	delete(m.docs[kind], id)
	return nil
}

func (m *MemoryBackend) List(_ context.Context, kind Kind) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, 0, len(m.docs[kind]))
	for _, doc := range m.docs[kind] {
		out = append(out, append([]byte(nil), doc...))
	}
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }
