package storage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/eternalApril/moonmock/internal/clock"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument is returned for malformed arguments, e.g. an odd field/value list
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrWrongType means the operation does not apply to the kind of value held by the key
	ErrWrongType = fmt.Errorf("%w: operation against a key holding the wrong kind of value", ErrInvalidArgument)
	// ErrClosedStream is returned by writes to an adapter that was already closed or aborted
	ErrClosedStream = errors.New("write on closed stream")
	// ErrStreamDetached means the entry a stream writer was appending to has been deleted or replaced
	ErrStreamDetached = errors.New("stream entry was deleted or replaced")
)

const (
	// TTLNotFound is reported by TTL and PTTL when the key does not exist
	TTLNotFound int64 = -2
	// TTLNoExpiry is reported by TTL and PTTL when the key exists but has no expiry
	TTLNoExpiry int64 = -1
)

// Storage is the command-facing contract of the in-memory store
type Storage interface {
	// Get returns the value and true if the key is found and live
	Get(key string) (Value, bool)

	// Set writes the value and makes the key persistent
	Set(key string, value Value)

	// SetWithExpiry writes the value with a TTL in seconds. A non-positive TTL produces an already expired key
	SetWithExpiry(key string, value Value, ttlSeconds int64)

	// Delete deletes the key. Returns true if the key was present and live
	Delete(key string) bool

	// Exists reports whether the key is present and live
	Exists(key string) bool

	// TTL returns the remaining lifetime in seconds, or TTLNotFound / TTLNoExpiry
	TTL(key string) int64

	// PTTL returns the remaining lifetime in milliseconds, or TTLNotFound / TTLNoExpiry
	PTTL(key string) int64

	// FlushAll drops every key
	FlushAll()

	// Keys returns every key currently held, without evaluating expiry
	Keys() []string

	// HSet merges alternating field/value pairs into the hash stored at key
	HSet(key string, fieldValues ...string) (int64, error)

	// HGetAll returns all fields and values of the hash stored at key
	HGetAll(key string) (map[string]string, bool, error)

	// ReadStream opens a chunked reader over the value stored at key
	ReadStream(key string) *StreamReader

	// WriteThrough returns a pass-through writer committing to key once closed
	WriteThrough(key string, ttlSeconds int64, dst io.Writer) *WriteThroughWriter

	// WriteStream creates key right away and appends each written chunk to it
	WriteStream(key string, ttlSeconds int64) *StreamWriter
}

var _ Storage = (*Store)(nil)

// Store is a thread-safe in-memory key-value store with lazy expiration.
// A single mutex guards the whole map, so a read that finds a stale entry evicts it atomically
type Store struct {
	data      map[string]*Entry
	mu        sync.Mutex
	clock     clock.Clock
	chunkSize int
	logger    *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for expiry arithmetic
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithChunkSize splits streamed values into chunks of at most n bytes. Zero streams the whole value as one chunk
func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger attaches a logger for store-level events
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty Store
func New(opts ...Option) *Store {
	s := &Store{
		data:   make(map[string]*Entry),
		clock:  clock.System{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns the current time in Unix milliseconds
func (s *Store) now() int64 {
	return s.clock.Now().UnixMilli()
}

// expireAt converts a TTL in seconds into an absolute deadline, saturating at the int64 bounds
func (s *Store) expireAt(ttlSeconds int64) int64 {
	now := s.now()
	switch {
	case ttlSeconds > (math.MaxInt64-now)/1000:
		return math.MaxInt64
	case ttlSeconds < math.MinInt64/1000:
		return math.MinInt64
	}
	return now + ttlSeconds*1000
}

// lookup returns the live entry for key. A stale entry is removed from the map
// as a side effect. The caller must hold s.mu
func (s *Store) lookup(key string, now int64) (*Entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if !isLive(e, now) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

// Len returns the number of keys currently held, including stale ones not yet evicted
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
