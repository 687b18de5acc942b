package cache

// evictOldestLocked removes the single entry with the oldest CreatedAt.
// This approximates LRU by insertion recency only; reads do not refresh an
// entry's position. Must be called with mu held.
func (m *Manager) evictOldestLocked() {
	var victim *Entry
	for _, entry := range m.entries {
		if victim == nil || older(entry, victim) {
			victim = entry
		}
	}
	if victim == nil {
		return
	}

	delete(m.entries, victim.Key)
	m.stats.Evictions++
	m.logger.Debug().
		Str("key", victim.Key).
		Int("max_items", m.maxItems).
		Msg("evicted oldest cache entry")
}

// older orders entries by CreatedAt, breaking ties by insertion order.
func older(a, b *Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.seq < b.seq
}
