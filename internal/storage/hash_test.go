package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSet_Merge(t *testing.T) {
	s, _ := newTestStore()

	added, err := s.HSet("h", "a", "1", "b", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	added, err = s.HSet("h", "b", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(0), added)

	got, ok, err := s.HGetAll("h")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(map[string]string{"a": "1", "b": "3"}, got); diff != "" {
		t.Errorf("HGetAll mismatch (-want +got):\n%s", diff)
	}
}

func TestHSet_LastPairWins(t *testing.T) {
	s, _ := newTestStore()

	added, err := s.HSet("h", "f", "1", "f", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	got, _, _ := s.HGetAll("h") //nolint:errcheck
	assert.Equal(t, map[string]string{"f": "2"}, got)
}

func TestHSet_InvalidArguments(t *testing.T) {
	s, _ := newTestStore()

	tests := []struct {
		name string
		args []string
	}{
		{"empty", nil},
		{"odd", []string{"a", "1", "b"}},
		{"single field", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.HSet("h", tt.args...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.False(t, s.Exists("h"), "failed HSet must not create the key")
		})
	}
}

func TestHSet_WrongType(t *testing.T) {
	s, _ := newTestStore()

	s.Set("k", String("plain"))

	_, err := s.HSet("k", "f", "v")
	assert.ErrorIs(t, err, ErrWrongType)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "plain", v.String(), "value must be left untouched")

	_, _, err = s.HGetAll("k")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestHSet_KeepsExpiry(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("h", Hash(map[string]string{"a": "1"}), 10)
	clk.Advance(4 * time.Second)

	_, err := s.HSet("h", "b", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.TTL("h"))

	clk.Advance(7 * time.Second)
	_, ok, err := s.HGetAll("h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHSet_NewKeyIsPersistent(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.HSet("h", "a", "1")
	require.NoError(t, err)
	assert.Equal(t, TTLNoExpiry, s.TTL("h"))
}

func TestHSet_ReplacesExpiredValue(t *testing.T) {
	s, clk := newTestStore()

	s.SetWithExpiry("k", String("old"), 1)
	clk.Advance(2 * time.Second)

	_, err := s.HSet("k", "a", "1")
	require.NoError(t, err)
	assert.Equal(t, TTLNoExpiry, s.TTL("k"))

	got, ok, err := s.HGetAll("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "1"}, got)
}

func TestHGetAll_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore()

	_, err := s.HSet("h", "a", "1")
	require.NoError(t, err)

	got, _, _ := s.HGetAll("h") //nolint:errcheck
	got["a"] = "mutated"

	again, _, _ := s.HGetAll("h") //nolint:errcheck
	assert.Equal(t, "1", again["a"])

	v, _ := s.Get("h")
	assert.Equal(t, TypeHash, v.Type)
	assert.Equal(t, map[string]string{"a": "1"}, v.Fields())
}

func TestHGetAll_Missing(t *testing.T) {
	s, _ := newTestStore()

	got, ok, err := s.HGetAll("none")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
