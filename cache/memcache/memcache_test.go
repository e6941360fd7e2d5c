package memcache_test

import (
	"testing"

	"github.com/nabbar/netcore/cache"
	"github.com/nabbar/netcore/cache/memcache"
	"github.com/stretchr/testify/require"
)

func TestInsertAndData(t *testing.T) {
	m := memcache.New(1024)
	require.Nil(t, m.Insert("http://a", []byte("hello"), cache.Metadata{URL: "http://a"}))

	data, ok := m.Data("http://a")
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestInsertRejectsOversizedEntry(t *testing.T) {
	m := memcache.New(4)
	err := m.Insert("http://a", []byte("hello"), cache.Metadata{})
	require.NotNil(t, err)
}

func TestInsertEvictsLeastRecentlyUsed(t *testing.T) {
	m := memcache.New(10)
	require.Nil(t, m.Insert("a", []byte("01234"), cache.Metadata{}))
	require.Nil(t, m.Insert("b", []byte("56789"), cache.Metadata{}))

	// touch a, making b the LRU victim
	_, _ = m.Data("a")

	require.Nil(t, m.Insert("c", []byte("abcde"), cache.Metadata{}))

	_, okA := m.Data("a")
	_, okB := m.Data("b")
	_, okC := m.Data("c")
	require.True(t, okA)
	require.False(t, okB)
	require.True(t, okC)
}

func TestRemoveAndClear(t *testing.T) {
	m := memcache.New(100)
	require.Nil(t, m.Insert("a", []byte("x"), cache.Metadata{}))
	require.Nil(t, m.Remove("a"))
	_, ok := m.Data("a")
	require.False(t, ok)

	require.Nil(t, m.Insert("b", []byte("y"), cache.Metadata{}))
	require.Nil(t, m.Clear())
	require.Equal(t, int64(0), m.CacheSize())
}

func TestSetMaxCacheSizeEvicts(t *testing.T) {
	m := memcache.New(100)
	require.Nil(t, m.Insert("a", []byte("01234"), cache.Metadata{}))
	require.Nil(t, m.Insert("b", []byte("56789"), cache.Metadata{}))

	m.SetMaxCacheSize(5)
	require.LessOrEqual(t, m.CacheSize(), int64(5))
}
