package cache

// Stats is a point-in-time view of cache activity since construction.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Sets        uint64 `json:"sets"`
	Deletes     uint64 `json:"deletes"`
	Expirations uint64 `json:"expirations"`
	Evictions   uint64 `json:"evictions"`

	// PersistFailures counts failed durable writes.
	PersistFailures uint64 `json:"persist_failures"`

	// Size is the number of entries held in memory.
	Size int `json:"size"`

	// MaxItems is the configured soft cap.
	MaxItems int `json:"max_items"`

	// Persisting is false once persistence has been disabled after repeated failures.
	Persisting bool `json:"persisting"`
}

// HitRatio returns hits / (hits + misses), or 0 when nothing was read.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a copy of the cache counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.entries)
	s.MaxItems = m.maxItems
	s.Persisting = !m.persistDisabled
	return s
}
