package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rshade/storecache/internal/storage"
)

// Common cache errors.
var (
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrUnencodable     = errors.New("cache value is not JSON-serializable")
	ErrDecode          = errors.New("cached value cannot be decoded into the requested type")
)

// Manager is an in-memory key/value cache with per-entry TTL, a soft
// capacity bound, and a durable mirror of its whole state.
// All methods are safe for concurrent use; each call is atomic with respect
// to the others.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*Entry
	nextSeq uint64

	defaultTTL time.Duration
	maxItems   int
	namespace  string
	storage    storage.Storage
	clock      Clock
	logger     zerolog.Logger

	coalesce bool
	inflight singleflight.Group

	persistFailureLimit int
	persistFailures     int
	persistDisabled     bool

	stats Stats
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultTTL sets the TTL used when Set is called without one.
// Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

// WithMaxItems sets the soft cap on distinct keys. Non-positive values are ignored.
func WithMaxItems(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxItems = n
		}
	}
}

// WithStorage sets the durable storage mirrored by the cache.
func WithStorage(s storage.Storage) Option {
	return func(m *Manager) {
		if s != nil {
			m.storage = s
		}
	}
}

// WithNamespace sets the name of the single blob the cache persists to.
func WithNamespace(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.namespace = name
		}
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger used for persistence warnings and debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCoalescing makes concurrent GetOrFetch calls for the same cold key
// share a single producer invocation. The shared producer does not see the
// cancellation of whichever caller started it.
func WithCoalescing(enabled bool) Option {
	return func(m *Manager) {
		m.coalesce = enabled
	}
}

// WithPersistFailureLimit disables persistence for the rest of the process
// after n consecutive failed writes. Zero keeps retrying forever.
func WithPersistFailureLimit(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.persistFailureLimit = n
		}
	}
}

// New creates a Manager and loads any previously persisted state from its storage.
// Entries that expired while the process was down are dropped. New never fails:
// a missing or unreadable blob yields an empty cache.
func New(opts ...Option) *Manager {
	m := &Manager{
		entries:    make(map[string]*Entry),
		defaultTTL: DefaultTTL,
		maxItems:   DefaultMaxItems,
		namespace:  DefaultNamespace,
		storage:    storage.NewMemoryStorage(),
		clock:      SystemClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.load()
	return m
}

// Get returns the raw JSON payload stored under key.
// An expired entry is removed (and the removal persisted) and reported as a miss.
func (m *Manager) Get(key string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookupLocked(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(entry.Data), true
}

// Has reports whether key holds a live entry. Like Get, it removes an expired entry.
func (m *Manager) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// GetAs returns the value stored under key decoded into T.
// The error is non-nil only when the stored payload does not decode into T.
func GetAs[T any](m *Manager, key string) (T, bool, error) {
	var v T

	raw, ok := m.Get(key)
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("%w: key %q: %w", ErrDecode, key, err)
	}
	return v, true, nil
}

// Set stores data under key with the default TTL.
func (m *Manager) Set(key string, data any) error {
	return m.SetWithTTL(key, data, 0)
}

// SetWithTTL stores data under key, expiring after ttl (the default TTL when ttl <= 0).
// If key is new and the cache is full, the oldest entry is evicted first.
// Errors are returned only for an empty key or a value that cannot be encoded
// as JSON; persistence failures are logged and swallowed.
func (m *Manager) SetWithTTL(key string, data any, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidCacheKey
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: key %q: %w", ErrUnencodable, key, err)
	}

	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxItems {
		m.evictOldestLocked()
	}

	entry := newEntry(key, raw, m.clock.Now(), ttl)
	entry.seq = m.nextSeq
	m.nextSeq++
	m.entries[key] = entry
	m.stats.Sets++

	m.persistLocked()
	return nil
}

// Delete removes the entry stored under key. Deleting a missing key is a no-op.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		delete(m.entries, key)
		m.stats.Deletes++
	}
	m.persistLocked()
}

// Clear removes every entry and deletes the persisted blob.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*Entry)
	m.nextSeq = 0

	if err := m.storage.Remove(m.namespace); err != nil {
		m.logger.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to remove persisted cache")
	}
}

// Prune removes every expired entry and returns how many were removed.
// The state is persisted once if anything changed.
func (m *Manager) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for key, entry := range m.entries {
		if entry.ExpiredAt(now) {
			delete(m.entries, key)
			removed++
		}
	}

	if removed > 0 {
		m.stats.Expirations += uint64(removed)
		m.logger.Debug().Int("removed", removed).Msg("pruned expired cache entries")
		m.persistLocked()
	}
	return removed
}

// Len returns the number of entries held in memory, including expired
// entries that have not been removed yet.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns a snapshot of the live entries, oldest first.
// It does not remove expired entries.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	out := make([]Entry, 0, len(m.entries))
	for _, entry := range m.sortedLocked() {
		if !entry.ExpiredAt(now) {
			e := *entry
			e.Data = bytes.Clone(entry.Data)
			out = append(out, e)
		}
	}
	return out
}

// Keys returns the keys of the live entries, oldest first.
func (m *Manager) Keys() []string {
	entries := m.Entries()
	keys := make([]string, len(entries))
	for i := range entries {
		keys[i] = entries[i].Key
	}
	return keys
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

// DefaultTTL returns the TTL applied when none is given.
func (m *Manager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// MaxItems returns the soft cap on distinct keys.
func (m *Manager) MaxItems() int {
	return m.maxItems
}

// Namespace returns the name of the persisted blob.
func (m *Manager) Namespace() string {
	return m.namespace
}

// lookupLocked returns the live entry for key, removing it if expired.
// Must be called with mu held.
func (m *Manager) lookupLocked(key string) (*Entry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}

	if entry.ExpiredAt(m.clock.Now()) {
		delete(m.entries, key)
		m.stats.Misses++
		m.stats.Expirations++
		m.logger.Debug().Str("key", key).Msg("cache entry expired")
		m.persistLocked()
		return nil, false
	}

	m.stats.Hits++
	return entry, true
}

// sortedLocked returns entries ordered by CreatedAt, then insertion order.
// Must be called with mu held.
func (m *Manager) sortedLocked() []*Entry {
	out := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return older(out[i], out[j])
	})
	return out
}
