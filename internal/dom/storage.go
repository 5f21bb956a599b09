package dom

import (
	"maps"
	"sync"
)

// Storage is the host key/value store, shaped like Web Storage.
// Unlike the browser API every operation may fail.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryStorage is an in-memory Storage.
//
// Fail makes every later operation return err until cleared with nil,
// which is how tests exercise step error handling.
//
// Thread-safety: All methods are safe for concurrent use.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

// Fail injects err into every later operation; nil restores normal behavior.
func (s *MemoryStorage) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStorage) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items[key] = value
	return nil
}

func (s *MemoryStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.items, key)
	return nil
}

// Items returns a copy of the stored items.
func (s *MemoryStorage) Items() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.items)
}
