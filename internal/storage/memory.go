package storage

import "sync"

// MemoryStorage keeps blobs in memory. It does not survive the process and
// is used in tests and when persistence is turned off.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string]string)}
}

// Read returns the blob stored under name.
func (s *MemoryStorage) Read(name string) (string, bool, error) {
	if err := validateName(name); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.blobs[name]
	return v, ok, nil
}

// Write replaces the blob stored under name.
func (s *MemoryStorage) Write(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[name] = value
	return nil
}

// Remove deletes the blob stored under name.
func (s *MemoryStorage) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, name)
	return nil
}
