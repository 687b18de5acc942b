package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Sort orders and defaults.
const (
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
	DefaultSortOrder = SortOrderAsc

	// sortPartsMax is the maximum number of parts in a sort string (field:order).
	sortPartsMax = 2
)

// Common validation errors.
var (
	ErrInvalidLimit      = errors.New("limit cannot be negative")
	ErrInvalidOffset     = errors.New("offset cannot be negative")
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'expires:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
	ErrInvalidSortField  = errors.New("invalid sort field")
)

// Params holds the windowing and sort flags of a list command.
type Params struct {
	// Limit is the maximum number of results. Zero means no limit.
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// Sort is a "field" or "field:order" expression. Empty keeps the input order.
	Sort string
}

// Validate checks Params for negative bounds and a malformed sort expression.
func (p Params) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, p.Limit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, p.Offset)
	}
	if p.Sort != "" {
		if _, _, err := ParseSort(p.Sort); err != nil {
			return err
		}
	}
	return nil
}

// ParseSort parses a sort string in the format "field" or "field:order".
// An empty string yields an empty field and the default order.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if sortStr == "" {
		return "", DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}
	return field, order, nil
}

// Apply returns the window of items selected by offset and limit.
// The result shares the backing array of items.
func Apply[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
