package kvstore

import "sync"

// MemoryStore is an in-memory Store used in tests and as a fallback when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(group, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[group+"\x00"+key]
	return value, ok, nil
}

func (s *MemoryStore) Set(group, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[group+"\x00"+key] = value
	return nil
}

func (s *MemoryStore) Unset(group, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, group+"\x00"+key)
	return nil
}
