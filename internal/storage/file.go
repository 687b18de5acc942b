package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// blobFileExtension is the file extension used for stored blobs.
const blobFileExtension = ".json"

// FileStorage stores each named blob as a file in a directory.
// Writes go to a temporary file first and are renamed into place, so a
// reader never observes a half-written blob.
// Thread-safe for concurrent access.
type FileStorage struct {
	// directory is the storage directory path.
	directory string

	// mu protects concurrent access to file operations.
	mu sync.RWMutex
}

// NewFileStorage creates a file-backed storage rooted at directory.
// The directory will be created if it doesn't exist.
func NewFileStorage(directory string) (*FileStorage, error) {
	if directory == "" {
		return nil, errors.New("storage directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{directory: directory}, nil
}

// Read returns the blob stored under name.
func (s *FileStorage) Read(name string) (string, bool, error) {
	if err := validateName(name); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read blob %s: %w", name, err)
	}

	return string(data), true, nil
}

// Write replaces the blob stored under name.
func (s *FileStorage) Write(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.path(name)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename blob %s: %w", name, err)
	}

	return nil
}

// Remove deletes the blob stored under name.
// Returns nil if the blob doesn't exist (idempotent).
func (s *FileStorage) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob %s: %w", name, err)
	}

	return nil
}

// Directory returns the storage directory path.
func (s *FileStorage) Directory() string {
	return s.directory
}

// Path returns the file path used for the blob stored under name.
func (s *FileStorage) Path(name string) string {
	return s.path(name)
}

func (s *FileStorage) path(name string) string {
	return filepath.Join(s.directory, name+blobFileExtension)
}
