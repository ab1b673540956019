package storage

import "sync"

// MemoryStore is a Backend that keeps everything in process memory.
// It is used by tests and by hosts that do not want state to survive restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory backend
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]byte),
	}
}

// Get returns a copy of the value stored under key in namespace
func (m *MemoryStore) Get(namespace, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[namespaceOrDefault(namespace)][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put stores a copy of value under key in namespace
func (m *MemoryStore) Put(namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	ns := namespaceOrDefault(namespace)
	bucket, ok := m.data[ns]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[ns] = bucket
	}
	bucket[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key from namespace
func (m *MemoryStore) Delete(namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data[namespaceOrDefault(namespace)], key)
	return nil
}

// DeleteAll removes every key of namespace
func (m *MemoryStore) DeleteAll(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data, namespaceOrDefault(namespace))
	return nil
}

// Close makes every later call fail with ErrClosed
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
