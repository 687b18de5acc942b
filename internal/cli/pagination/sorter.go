package pagination

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rshade/storecache/internal/cache"
)

// Sortable entry fields.
const (
	FieldKey     = "key"
	FieldCreated = "created"
	FieldExpires = "expires"
	FieldSize    = "size"
)

// ValidFields returns the entry fields accepted by SortEntries, in a stable order.
func ValidFields() []string {
	return []string{FieldCreated, FieldExpires, FieldKey, FieldSize}
}

// SortEntries returns a sorted copy of entries for a "field[:order]"
// expression. An empty expression returns the entries unchanged.
func SortEntries(entries []cache.Entry, sortStr string) ([]cache.Entry, error) {
	field, order, err := ParseSort(sortStr)
	if err != nil {
		return nil, err
	}
	if field == "" {
		return entries, nil
	}

	less, ok := entryLess[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(ValidFields(), ", "))
	}

	sorted := make([]cache.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		// Swapping keeps the sort stable in descending order too.
		if order == SortOrderDesc {
			i, j = j, i
		}
		return less(&sorted[i], &sorted[j])
	})
	return sorted, nil
}

//nolint:gochecknoglobals // Read-only lookup table.
var entryLess = map[string]func(a, b *cache.Entry) bool{
	FieldKey:     func(a, b *cache.Entry) bool { return a.Key < b.Key },
	FieldCreated: func(a, b *cache.Entry) bool { return a.CreatedAt.Before(b.CreatedAt) },
	FieldExpires: func(a, b *cache.Entry) bool { return a.ExpiresAt.Before(b.ExpiresAt) },
	FieldSize:    func(a, b *cache.Entry) bool { return len(a.Data) < len(b.Data) },
}
