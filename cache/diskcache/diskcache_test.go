package diskcache_test

import (
	"testing"
	"time"

	"github.com/nabbar/netcore/cache"
	"github.com/nabbar/netcore/cache/diskcache"
	"github.com/stretchr/testify/require"
)

func TestInsertAndDataRoundTrip(t *testing.T) {
	d, err := diskcache.New(t.TempDir(), 1024)
	require.Nil(t, err)

	require.Nil(t, d.Insert("http://example.com/a", []byte("payload"), cache.Metadata{URL: "http://example.com/a"}))

	data, ok := d.Data("http://example.com/a")
	require.True(t, ok)
	require.Equal(t, []byte("payload"), data)

	meta, ok := d.Metadata("http://example.com/a")
	require.True(t, ok)
	require.Equal(t, int64(len("payload")), meta.Size)
}

func TestInsertRejectsOversized(t *testing.T) {
	d, err := diskcache.New(t.TempDir(), 2)
	require.Nil(t, err)
	require.NotNil(t, d.Insert("http://a", []byte("toolarge"), cache.Metadata{}))
}

func TestInsertEvictsOldestByMtime(t *testing.T) {
	d, err := diskcache.New(t.TempDir(), 12)
	require.Nil(t, err)

	require.Nil(t, d.Insert("http://a", []byte("123456"), cache.Metadata{}))
	time.Sleep(10 * time.Millisecond)
	require.Nil(t, d.Insert("http://b", []byte("abcdef"), cache.Metadata{}))

	// inserting c should evict a (oldest), not b, regardless of reads
	_, _ = d.Data("http://a")
	time.Sleep(10 * time.Millisecond)
	require.Nil(t, d.Insert("http://c", []byte("zyxwvu"), cache.Metadata{}))

	_, okA := d.Data("http://a")
	_, okB := d.Data("http://b")
	_, okC := d.Data("http://c")
	require.False(t, okA)
	require.True(t, okB)
	require.True(t, okC)
}

func TestRemoveAndClear(t *testing.T) {
	d, err := diskcache.New(t.TempDir(), 1024)
	require.Nil(t, err)

	require.Nil(t, d.Insert("http://a", []byte("x"), cache.Metadata{}))
	require.Nil(t, d.Remove("http://a"))
	_, ok := d.Data("http://a")
	require.False(t, ok)

	require.Nil(t, d.Insert("http://b", []byte("y"), cache.Metadata{}))
	require.Nil(t, d.Clear())
	require.Equal(t, int64(0), d.CacheSize())
}
