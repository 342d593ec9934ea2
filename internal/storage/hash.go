package storage

import (
	"fmt"
	"maps"
)

// HSet sets the specified fields to their respective values in the hash stored at key.
// fieldValues alternates field and value; a later pair wins over an earlier one for the same field.
// A missing key becomes a persistent hash, an existing hash keeps its expiration.
// Returns the number of fields that were added
func (s *Store) HSet(key string, fieldValues ...string) (int64, error) {
	if len(fieldValues) == 0 || len(fieldValues)%2 != 0 {
		return 0, fmt.Errorf("%w: field/value list must be non-empty and of even length, got %d items",
			ErrInvalidArgument, len(fieldValues))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, s.now())
	if !ok {
		e = &Entry{Value: Value{Type: TypeHash, hash: make(map[string]string, len(fieldValues)/2)}}
		s.data[key] = e
	} else if e.Value.Type != TypeHash {
		return 0, ErrWrongType
	}

	var added int64
	for i := 0; i < len(fieldValues); i += 2 {
		field := fieldValues[i]
		if _, exists := e.Value.hash[field]; !exists {
			added++
		}
		e.Value.hash[field] = fieldValues[i+1]
	}

	return added, nil
}

// HGetAll returns a copy of all fields and values of the hash stored at key.
// The same lazy expiration as Get applies
func (s *Store) HGetAll(key string) (map[string]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, s.now())
	if !ok {
		return nil, false, nil
	}
	if e.Value.Type != TypeHash {
		return nil, false, ErrWrongType
	}

	fields := make(map[string]string, len(e.Value.hash))
	maps.Copy(fields, e.Value.hash)
	return fields, true, nil
}
