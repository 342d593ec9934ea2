package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

// StreamReader is a finite, non-restartable chunk source over a value snapshot taken when it was opened
type StreamReader struct {
	data      []byte
	chunkSize int
	mu        sync.Mutex
}

// ReadStream opens a reader over the value stored at key. Expiry is evaluated once, at open time;
// a missing or expired key (and a hash, which has no byte form) yields an immediately finished stream
func (s *Store) ReadStream(key string) *StreamReader {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &StreamReader{chunkSize: s.chunkSize}
	if e, ok := s.lookup(key, s.now()); ok {
		r.data = e.Value.Bytes()
	}
	return r
}

// Next returns the next chunk, or io.EOF once the value is exhausted.
// Without a configured chunk size the first chunk is the whole value
func (r *StreamReader) Next() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return nil, io.EOF
	}

	n := len(r.data)
	if r.chunkSize > 0 && r.chunkSize < n {
		n = r.chunkSize
	}
	chunk := r.data[:n:n]
	r.data = r.data[n:]
	return chunk, nil
}

// Read implements io.Reader. A single call never crosses a chunk boundary
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	limit := len(p)
	if r.chunkSize > 0 && r.chunkSize < limit {
		limit = r.chunkSize
	}
	n := copy(p[:limit], r.data)
	r.data = r.data[n:]
	return n, nil
}

// Close releases the snapshot. Further reads report io.EOF
func (r *StreamReader) Close() error {
	r.mu.Lock()
	r.data = nil
	r.mu.Unlock()
	return nil
}

// WriteThroughWriter forwards every chunk downstream unchanged and commits the
// concatenation to the store when the producer closes it cleanly
type WriteThroughWriter struct {
	store  *Store
	key    string
	ttl    int64
	dst    io.Writer
	buf    bytes.Buffer
	closed bool
	mu     sync.Mutex
}

// WriteThrough creates a write-through stage for key. dst may be nil when nothing sits downstream.
// A non-zero ttlSeconds gives the committed key an expiration counted from commit time (a negative one commits
// an already expired key); zero commits a persistent key
func (s *Store) WriteThrough(key string, ttlSeconds int64, dst io.Writer) *WriteThroughWriter {
	return &WriteThroughWriter{
		store: s,
		key:   key,
		ttl:   ttlSeconds,
		dst:   dst,
	}
}

// Write passes p downstream, then buffers it for the commit
func (w *WriteThroughWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosedStream
	}

	if w.dst != nil {
		if n, err := w.dst.Write(p); err != nil {
			return n, err
		}
	}

	return w.buf.Write(p)
}

// Close signals the end of the stream and commits the buffered value. Only the first call commits
func (w *WriteThroughWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	value := Bytes(bytes.Clone(w.buf.Bytes()))
	w.buf.Reset()

	if w.ttl != 0 {
		w.store.SetWithExpiry(w.key, value, w.ttl)
	} else {
		w.store.Set(w.key, value)
	}
	return nil
}

// CloseWithError aborts the stream. Nothing is committed and the buffer is dropped
func (w *WriteThroughWriter) CloseWithError(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.store.logger.Debug("write-through aborted",
		zap.String("key", w.key),
		zap.Int("discarded_bytes", w.buf.Len()),
		zap.Error(err),
	)
	w.buf.Reset()
	return nil
}

// Pipe copies src through a write-through stage for key into dst.
// The value is committed only if src reaches io.EOF before ctx is done
func (s *Store) Pipe(ctx context.Context, src io.Reader, dst io.Writer, key string, ttlSeconds int64) (int64, error) {
	w := s.WriteThrough(key, ttlSeconds, dst)

	n, err := io.Copy(w, &contextReader{ctx: ctx, r: src})
	if err != nil {
		w.CloseWithError(err) //nolint:errcheck
		return n, err
	}
	return n, w.Close()
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// StreamWriter appends every chunk straight into the stored value, so partial data is visible before Close
type StreamWriter struct {
	store  *Store
	key    string
	entry  *Entry
	closed bool
	mu     sync.Mutex
}

// WriteStream replaces key with an empty value whose deadline is fixed now, at creation, to now + ttlSeconds
func (s *Store) WriteStream(key string, ttlSeconds int64) *StreamWriter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Entry{
		Value:     Bytes([]byte{}),
		ExpireAt:  s.expireAt(ttlSeconds),
		HasExpiry: true,
	}
	s.data[key] = e

	return &StreamWriter{store: s, key: key, entry: e}
}

// Write appends p to the stored value. The store lock is taken per chunk only
func (w *StreamWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosedStream
	}

	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[w.key] != w.entry || !isLive(w.entry, s.now()) {
		return 0, ErrStreamDetached
	}
	w.entry.Value.raw = append(w.entry.Value.raw, p...)
	return len(p), nil
}

// Close ends the stream. The value already written stays in place
func (w *StreamWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// CloseWithError aborts the stream. Chunks appended so far are kept
func (w *StreamWriter) CloseWithError(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		w.store.logger.Debug("write stream aborted", zap.String("key", w.key), zap.Error(err))
	}
	return nil
}
