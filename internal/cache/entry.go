package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry represents a single cached value with TTL metadata.
// Entries are immutable once stored; Set always replaces the whole entry.
type Entry struct {
	// Key is the cache key.
	Key string

	// Data is the cached value (JSON-encoded).
	Data json.RawMessage

	// CreatedAt is the instant the entry was stored, at millisecond precision.
	CreatedAt time.Time

	// ExpiresAt is CreatedAt + TTL.
	ExpiresAt time.Time

	// TTL is the time-to-live applied when the entry was stored.
	TTL time.Duration

	// seq is the insertion sequence, used to break CreatedAt ties on eviction.
	seq uint64
}

// newEntry creates an entry created at now that lives for ttl.
func newEntry(key string, data json.RawMessage, now time.Time, ttl time.Duration) *Entry {
	created := truncateMillis(now)
	return &Entry{
		Key:       key,
		Data:      data,
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
		TTL:       ttl,
	}
}

// ExpiredAt reports whether the entry is expired at now.
// An entry is still valid at exactly ExpiresAt.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > e.ExpiresAt.UnixMilli()
}

// Age returns how long ago, relative to now, the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Remaining returns the time left before expiry, or 0 if already expired.
func (e *Entry) Remaining(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// entryJSON is the persisted form of an Entry. Timestamps are epoch milliseconds.
type entryJSON struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
	ExpiresAt int64           `json:"expires_at"`
	TTLMillis int64           `json:"ttl_ms"`
}

// MarshalJSON implements json.Marshaler for Entry.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Key:       e.Key,
		Data:      e.Data,
		CreatedAt: e.CreatedAt.UnixMilli(),
		ExpiresAt: e.ExpiresAt.UnixMilli(),
		TTLMillis: e.TTL.Milliseconds(),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}

	var aux entryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Key == "" {
		return ErrInvalidCacheKey
	}
	if len(aux.Data) == 0 {
		return errors.New("cache entry has no data")
	}

	e.Key = aux.Key
	e.Data = aux.Data
	e.CreatedAt = time.UnixMilli(aux.CreatedAt)
	e.ExpiresAt = time.UnixMilli(aux.ExpiresAt)
	e.TTL = time.Duration(aux.TTLMillis) * time.Millisecond
	return nil
}

func truncateMillis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
