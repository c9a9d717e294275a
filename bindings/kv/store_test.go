package kv

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// stores returns each backend wired to one controllable clock.
func stores(t *testing.T) map[string]func(clock *fakeClock) Store {
	t.Helper()
	return map[string]func(clock *fakeClock) Store{
		"memory": func(clock *fakeClock) Store {
			m := NewMemoryStore()
			m.now = clock.now
			return m
		},
		"sqlite": func(clock *fakeClock) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			s.now = clock.now
			return s
		},
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			st := open(&fakeClock{t: time.Unix(1000, 0)})

			meta := `{"owner":"a"}`
			require.NoError(t, st.Put("k", []byte("v1"), PutOptions{Metadata: &meta}))
			require.NoError(t, st.Put("k", []byte("v2"), PutOptions{}))

			e, err := st.Get("k")
			require.NoError(t, err)
			require.NotNil(t, e)
			assert.Equal(t, []byte("v2"), e.Value)
			assert.Nil(t, e.Metadata)

			existed, err := st.Delete("k")
			require.NoError(t, err)
			assert.True(t, existed)

			existed, err = st.Delete("k")
			require.NoError(t, err)
			assert.False(t, existed)

			e, err = st.Get("k")
			require.NoError(t, err)
			assert.Nil(t, e)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1000, 0)}
			st := open(clock)

			require.NoError(t, st.Put("ttl", []byte("x"), PutOptions{ExpiresAt: clock.t.Add(time.Minute)}))
			e, err := st.Get("ttl")
			require.NoError(t, err)
			assert.NotNil(t, e)

			clock.t = clock.t.Add(2 * time.Minute)
			e, err = st.Get("ttl")
			require.NoError(t, err)
			assert.Nil(t, e)

			res, err := st.List(ListOptions{})
			require.NoError(t, err)
			assert.Empty(t, res.Keys)
		})
	}
}

func TestStore_ListPrefixAndPaging(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			st := open(&fakeClock{t: time.Unix(1000, 0)})
			for _, k := range []string{"user:3", "user:1", "user:2", "other"} {
				require.NoError(t, st.Put(k, []byte(k), PutOptions{}))
			}

			res, err := st.List(ListOptions{Prefix: "user:", Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{"user:1", "user:2"}, res.Keys)
			assert.False(t, res.ListComplete)
			require.NotEmpty(t, res.Cursor)

			res, err = st.List(ListOptions{Prefix: "user:", Limit: 2, Cursor: res.Cursor})
			require.NoError(t, err)
			assert.Equal(t, []string{"user:3"}, res.Keys)
			assert.True(t, res.ListComplete)
			assert.Empty(t, res.Cursor)
		})
	}
}

func TestStore_ValueTooLarge(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			st := open(&fakeClock{t: time.Now()})
			big := []byte(strings.Repeat("x", MaxValueSize+1))
			assert.ErrorIs(t, st.Put("big", big, PutOptions{}), ErrValueTooLarge)
		})
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMemoryStore()
	m.now = clock.now
	require.NoError(t, m.Put("a", []byte("1"), PutOptions{ExpiresAt: clock.t.Add(time.Second)}))
	require.NoError(t, m.Put("b", []byte("2"), PutOptions{}))

	clock.t = clock.t.Add(time.Hour)
	assert.Equal(t, 1, m.CleanupExpired())
	assert.Len(t, m.data, 1)
}

func TestSQLiteStore_CleanupExpired(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	s.now = clock.now

	require.NoError(t, s.Put("a", []byte("1"), PutOptions{ExpiresAt: clock.t.Add(time.Second)}))
	clock.t = clock.t.Add(time.Hour)
	n, err := s.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCursor_Malformed(t *testing.T) {
	assert.Equal(t, 0, decodeCursor("!!!"))
	assert.Equal(t, 0, decodeCursor(encodeCursor(-5)))
	assert.Equal(t, 7, decodeCursor(encodeCursor(7)))
}
