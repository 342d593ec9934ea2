package storage

import (
	"math"

	"go.uber.org/zap"
)

// Get returns the value and true if the key is found. An expired key is evicted and reported as missing
func (s *Store) Get(key string) (Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, s.now())
	if !ok {
		return Value{}, false
	}
	if e.Value.Type == TypeHash {
		return Hash(e.Value.hash), true
	}
	return e.Value, true
}

// Set overwrites the key and removes any previous expiration (persist)
func (s *Store) Set(key string, value Value) {
	s.mu.Lock()
	s.data[key] = &Entry{Value: value}
	s.mu.Unlock()
}

// SetWithExpiry overwrites the key and sets its deadline to now + ttlSeconds.
// Zero or negative TTLs are accepted and leave the key already expired
func (s *Store) SetWithExpiry(key string, value Value, ttlSeconds int64) {
	s.mu.Lock()
	s.data[key] = &Entry{
		Value:     value,
		ExpireAt:  s.expireAt(ttlSeconds),
		HasExpiry: true,
	}
	s.mu.Unlock()
}

// Delete deletes the key. Returns true only if a live key was deleted; a stale entry is dropped silently
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return false
	}
	delete(s.data, key)
	return isLive(e, s.now())
}

// Exists reports whether the key is present and not expired
func (s *Store) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(key, s.now())
	return ok
}

// TTL returns the remaining lifetime rounded to whole seconds
func (s *Store) TTL(key string) int64 {
	ms := s.PTTL(key)
	if ms < 0 {
		return ms
	}
	return int64(math.Round(float64(ms) / 1000))
}

// PTTL returns the remaining lifetime in milliseconds
func (s *Store) PTTL(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.lookup(key, now)
	if !ok {
		return TTLNotFound
	}
	if !e.HasExpiry {
		return TTLNoExpiry
	}
	return e.ExpireAt - now
}

// FlushAll discards the whole map in one step
func (s *Store) FlushAll() {
	s.mu.Lock()
	n := len(s.data)
	s.data = make(map[string]*Entry)
	s.mu.Unlock()

	s.logger.Debug("store flushed", zap.Int("keys", n))
}

// Keys returns every key in the map. Expired keys that no read has evicted yet are included
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys
}
