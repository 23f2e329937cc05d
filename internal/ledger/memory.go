package ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used by the CLI when no database is
// configured and by tests.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]map[string]any{}}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true, nil
}

func (m *MemoryStore) Merge(ctx context.Context, key string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		doc = map[string]any{}
		m.docs[key] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
