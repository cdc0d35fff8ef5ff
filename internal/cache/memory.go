package cache

import "context"

type memoryStore struct {
	entries map[string]Entry
}

// NewMemoryStore returns the default in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Entry)}
}

func (m *memoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, e Entry) error {
	m.entries[key] = e
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) (bool, error) {
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok, nil
}

func (m *memoryStore) Keys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memoryStore) Len(_ context.Context) (int, error) {
	return len(m.entries), nil
}

func (m *memoryStore) Clear(_ context.Context) (int, error) {
	n := len(m.entries)
	m.entries = make(map[string]Entry)
	return n, nil
}
