package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rshade/storecache/pkg/version"
)

// snapshot is the single blob the cache persists.
type snapshot struct {
	Version string   `json:"version"`
	SavedAt int64    `json:"saved_at"`
	Entries []*Entry `json:"entries"`
}

// errIncompatibleBlob marks a persisted blob written by an incompatible layout.
var errIncompatibleBlob = errors.New("persisted cache has an incompatible format version")

// load reads the persisted blob once and restores the entries that are still live.
// Any read or decode failure leaves the cache empty.
func (m *Manager) load() {
	raw, found, err := m.storage.Read(m.namespace)
	if err != nil {
		m.logger.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to read persisted cache, starting empty")
		return
	}
	if !found || raw == "" {
		return
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		m.logger.Warn().Err(err).Str("namespace", m.namespace).Msg("ignoring unreadable persisted cache")
		return
	}

	now := m.clock.Now()
	dropped := 0
	for _, entry := range snap.Entries {
		if entry == nil {
			dropped++
			continue
		}
		if entry.ExpiredAt(now) {
			dropped++
			continue
		}
		entry.seq = m.nextSeq
		m.nextSeq++
		m.entries[entry.Key] = entry
	}

	// A blob written under a larger MaxItems is trimmed to the current bound.
	for len(m.entries) > m.maxItems {
		m.evictOldestLocked()
	}

	m.logger.Debug().
		Int("loaded", len(m.entries)).
		Int("dropped", dropped).
		Msg("restored persisted cache")
}

func decodeSnapshot(raw string) (*snapshot, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal persisted cache: %w", err)
	}
	if !version.Compatible(snap.Version) {
		return nil, fmt.Errorf("%w: %q", errIncompatibleBlob, snap.Version)
	}
	return &snap, nil
}

// persistLocked writes the whole in-memory state to storage. Failures are
// logged and counted, never returned. Must be called with mu held.
func (m *Manager) persistLocked() {
	if m.persistDisabled {
		return
	}

	if err := m.writeLocked(); err != nil {
		m.stats.PersistFailures++
		m.persistFailures++
		m.logger.Warn().Err(err).Str("namespace", m.namespace).Msg("failed to persist cache")

		if m.persistFailureLimit > 0 && m.persistFailures >= m.persistFailureLimit {
			m.persistDisabled = true
			m.logger.Error().
				Int("consecutive_failures", m.persistFailures).
				Msg("disabling cache persistence for this session")
		}
		return
	}
	m.persistFailures = 0
}

func (m *Manager) writeLocked() error {
	snap := snapshot{
		Version: version.FormatVersion,
		SavedAt: m.clock.Now().UnixMilli(),
		Entries: m.sortedLocked(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	return m.storage.Write(m.namespace, string(data))
}

// Flush writes the current state to storage and returns any error.
// It bypasses the disabled-persistence state, so tooling can check whether
// storage has recovered; a successful flush re-enables persistence.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeLocked(); err != nil {
		m.stats.PersistFailures++
		return err
	}
	m.persistFailures = 0
	m.persistDisabled = false
	return nil
}
