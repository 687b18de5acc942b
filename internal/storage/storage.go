package storage

import (
	"errors"
	"strings"
)

// ErrInvalidName is returned when a blob name is empty or contains path separators.
var ErrInvalidName = errors.New("storage name must be non-empty and contain no path separators")

// Storage is a durable key-value facility for whole string blobs.
type Storage interface {
	// Read returns the blob stored under name. found is false when nothing
	// was ever written or the blob was removed.
	Read(name string) (value string, found bool, err error)

	// Write replaces the blob stored under name.
	Write(name, value string) error

	// Remove deletes the blob stored under name. Removing a missing blob is not an error.
	Remove(name string) error
}

// validateName rejects names that cannot be mapped onto a single record.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\:`) {
		return ErrInvalidName
	}
	return nil
}
