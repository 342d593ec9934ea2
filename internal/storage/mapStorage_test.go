package storage

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/eternalApril/moonmock/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(opts ...Option) (*Store, *clock.Manual) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(append([]Option{WithClock(clk)}, opts...)...), clk
}

func TestStore_SetGet(t *testing.T) {
	s, _ := newTestStore()

	v, ok := s.Get("missing")
	assert.False(t, ok)
	assert.True(t, v.IsZero())

	s.Set("k", String("v"))
	v, ok = s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v.String())
	assert.Equal(t, TypeString, v.Type)
	assert.True(t, s.Exists("k"))

	s.Set("b", Bytes([]byte{0x00, 0xff}))
	v, ok = s.Get("b")
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0xff}, v.Bytes())
}

func TestValue(t *testing.T) {
	tests := []struct {
		name      string
		value     Value
		wantType  string
		wantBytes []byte
		wantHash  map[string]string
	}{
		{"bytes", Bytes([]byte("raw")), "string", []byte("raw"), nil},
		{"string", String("text"), "string", []byte("text"), nil},
		{"hash", Hash(map[string]string{"f": "v"}), "hash", nil, map[string]string{"f": "v"}},
		{"zero", Value{}, "none", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.value.Type.String())
			assert.Equal(t, tt.wantBytes, tt.value.Bytes())
			assert.Equal(t, string(tt.wantBytes), tt.value.String())
			assert.Equal(t, tt.wantHash, tt.value.Fields())
		})
	}
}

func TestStore_SetClearsExpiry(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("k", String("v1"), 10)
	s.Set("k", String("v2"))
	assert.Equal(t, TTLNoExpiry, s.TTL("k"))

	clk.Advance(time.Hour)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", v.String())
}

func TestStore_SetWithExpiry(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("k", String("v"), 2)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v.String())

	clk.Advance(1999 * time.Millisecond)
	assert.True(t, s.Exists("k"))

	clk.Advance(2 * time.Millisecond)
	_, ok = s.Get("k")
	assert.False(t, ok)
	assert.False(t, s.Exists("k"))
	assert.Equal(t, 0, s.Len(), "expired key must be evicted by the read")
}

func TestStore_NonPositiveTTLIsExpired(t *testing.T) {
	for _, ttl := range []int64{0, -1, -100} {
		t.Run(fmt.Sprintf("ttl=%d", ttl), func(t *testing.T) {
			s, _ := newTestStore()

			s.SetWithExpiry("k", String("v"), ttl)
			assert.Equal(t, 1, s.Len())
			assert.False(t, s.Exists("k"))
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestStore_HugeTTLSaturates(t *testing.T) {
	for _, ttl := range []int64{math.MaxInt64 / 1000, math.MaxInt64/1000 - 1, math.MaxInt64/1000 + 1, math.MaxInt64} {
		t.Run(fmt.Sprintf("ttl=%d", ttl), func(t *testing.T) {
			s, clk := newTestStore()

			s.SetWithExpiry("k", String("v"), ttl)
			assert.True(t, s.Exists("k"))
			assert.Greater(t, s.TTL("k"), int64(0))

			clk.Advance(24 * 365 * time.Hour)
			assert.True(t, s.Exists("k"))
		})
	}

	for _, ttl := range []int64{-(math.MaxInt64 / 1000), math.MinInt64 / 1000, math.MinInt64} {
		t.Run(fmt.Sprintf("ttl=%d", ttl), func(t *testing.T) {
			s, _ := newTestStore()

			s.SetWithExpiry("k", String("v"), ttl)
			assert.False(t, s.Exists("k"))
			assert.Equal(t, TTLNotFound, s.TTL("k"))
		})
	}
}

func TestStore_TTL(t *testing.T) {
	s, clk := newTestStore()

	assert.Equal(t, TTLNotFound, s.TTL("never"))

	s.Set("persistent", String("v"))
	assert.Equal(t, TTLNoExpiry, s.TTL("persistent"))
	assert.Equal(t, TTLNoExpiry, s.PTTL("persistent"))

	s.SetWithExpiry("k", String("v"), 10)
	assert.Equal(t, int64(10), s.TTL("k"))
	assert.Equal(t, int64(10_000), s.PTTL("k"))

	clk.Advance(5 * time.Second)
	assert.Equal(t, int64(5), s.TTL("k"))

	clk.Advance(6 * time.Second)
	assert.Equal(t, TTLNotFound, s.TTL("k"))
	assert.Equal(t, 1, s.Len(), "only the persistent key is left")
}

func TestStore_TTLRounding(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("k", String("v"), 3)

	clk.Advance(1400 * time.Millisecond) // 1.6s left
	assert.Equal(t, int64(2), s.TTL("k"))

	clk.Advance(200 * time.Millisecond) // 1.4s left
	assert.Equal(t, int64(1), s.TTL("k"))

	clk.Advance(1300 * time.Millisecond) // 0.1s left
	assert.Equal(t, int64(0), s.TTL("k"))

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, TTLNotFound, s.TTL("k"))
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore()

	assert.False(t, s.Delete("missing"))

	s.Set("k", String("v"))
	assert.True(t, s.Delete("k"))
	assert.False(t, s.Exists("k"))
	assert.False(t, s.Delete("k"))
}

func TestStore_DeleteStale(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("k", String("v"), 1)
	clk.Advance(2 * time.Second)
	require.Equal(t, 1, s.Len())

	assert.False(t, s.Delete("k"), "an expired key does not count as deleted")
	assert.Equal(t, 0, s.Len(), "the stale entry is still removed")
}

func TestStore_FlushAll(t *testing.T) {
	s, _ := newTestStore()

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		s.Set(k, String(k))
	}
	s.SetWithExpiry("d", String("d"), 100)
	_, err := s.HSet("h", "f", "v")
	require.NoError(t, err)

	s.FlushAll()

	for _, k := range append(keys, "d", "h") {
		assert.False(t, s.Exists(k), "key %s survived flush", k)
	}
	assert.Empty(t, s.Keys())
}

func TestStore_KeysIncludeStale(t *testing.T) {
	s, clk := newTestStore()

	s.Set("a", String("1"))
	s.SetWithExpiry("b", String("2"), 1)
	clk.Advance(2 * time.Second)

	keys := s.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	s.Get("b")
	assert.Equal(t, []string{"a"}, s.Keys())
}

func TestIsLive(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		now   int64
		want  bool
	}{
		{"no expiry", Entry{}, 1 << 40, true},
		{"before deadline", Entry{ExpireAt: 1000, HasExpiry: true}, 999, true},
		{"at deadline", Entry{ExpireAt: 1000, HasExpiry: true}, 1000, false},
		{"after deadline", Entry{ExpireAt: 1000, HasExpiry: true}, 1001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isLive(&tt.entry, tt.now))
		})
	}
}

func TestStore_Concurrency(t *testing.T) {
	s := New()
	const workers = 50
	const opsPerWorker = 10000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))
				val := fmt.Sprintf("val-%d", j)

				switch r.Intn(6) {
				case 0:
					s.Set(key, String(val))
				case 1:
					s.SetWithExpiry(key, String(val), int64(r.Intn(3)-1))
				case 2:
					s.Get(key)
				case 3:
					s.Delete(key)
				case 4:
					s.TTL(key)
				case 5:
					s.Exists(key)
				}
			}
		}(i)
	}

	wg.Wait()
}

func FuzzStore(f *testing.F) {
	s := New()

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		s.Set(key, Bytes([]byte(val)))

		v, ok := s.Get(key)
		if !ok || v.String() != val {
			t.Errorf("Get failed after Set: key=%q, val=%q", key, val)
		}
	})
}
