package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTypeMismatch is returned when a coalesced GetOrFetch call shares a
// result produced for a different type under the same key.
var ErrTypeMismatch = errors.New("coalesced fetch produced a value of a different type")

// Producer computes the value for a cache miss.
type Producer[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the value cached under key, or runs producer, caches
// its result for ttl (default TTL when ttl <= 0), and returns it.
//
// A producer error is returned unchanged and nothing is cached. Without
// coalescing, concurrent callers that miss the same key each run producer
// and the last one to finish wins the entry. The producer is not cancelled
// when ctx ends; cancellation is up to the producer itself. With coalescing
// the shared producer receives a ctx detached from the first caller's
// cancellation, so one caller giving up does not fail the others.
func GetOrFetch[T any](ctx context.Context, m *Manager, key string, producer Producer[T], ttl time.Duration) (T, error) {
	v, ok, err := GetAs[T](m, key)
	switch {
	case err != nil:
		// The payload no longer decodes; let the producer replace it.
		m.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
	case ok:
		return v, nil
	}

	if m.coalesce && key != "" {
		shared := context.WithoutCancel(ctx)
		res, doErr, _ := m.inflight.Do(key, func() (any, error) {
			produced, produceErr := producer(shared)
			if produceErr != nil {
				return nil, produceErr
			}
			m.storeFetched(key, produced, ttl)
			return produced, nil
		})
		if doErr != nil {
			var zero T
			return zero, doErr
		}
		out, ok := res.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("%w: key %q", ErrTypeMismatch, key)
		}
		return out, nil
	}

	v, err = producer(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	m.storeFetched(key, v, ttl)
	return v, nil
}

// storeFetched caches a produced value. The caller still receives the value
// when it cannot be cached.
func (m *Manager) storeFetched(key string, v any, ttl time.Duration) {
	if err := m.SetWithTTL(key, v, ttl); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("fetched value not cached")
	}
}
