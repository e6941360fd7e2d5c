package cache_test

import (
	"testing"
	"time"

	"github.com/nabbar/netcore/cache"
	"github.com/stretchr/testify/require"
)

func TestParseFreshnessNoStoreVetoes(t *testing.T) {
	f := cache.ParseFreshness(map[string]string{"Cache-Control": "no-store"})
	require.False(t, f.Cacheable)
}

func TestParseFreshnessPragmaNoCacheVetoes(t *testing.T) {
	f := cache.ParseFreshness(map[string]string{"Pragma": "no-cache"})
	require.False(t, f.Cacheable)
}

func TestParseFreshnessMaxAgeWinsOverExpires(t *testing.T) {
	f := cache.ParseFreshness(map[string]string{
		"Cache-Control": "max-age=60",
		"Expires":       "Thu, 01 Jan 1970 00:00:00 GMT",
	})
	require.True(t, f.Cacheable)
	require.WithinDuration(t, time.Now().Add(60*time.Second), f.Expires, 2*time.Second)
}

func TestParseFreshnessExpiresParsed(t *testing.T) {
	f := cache.ParseFreshness(map[string]string{"Expires": "Thu, 01 Jan 2035 00:00:00 GMT"})
	require.True(t, f.Cacheable)
	require.Equal(t, 2035, f.Expires.Year())
}

func TestParseFreshnessNoHeadersMeansPermanent(t *testing.T) {
	f := cache.ParseFreshness(map[string]string{})
	require.True(t, f.Cacheable)
	require.True(t, f.Expires.IsZero())
}

func TestMetadataIsValidZeroExpirationMeansPermanent(t *testing.T) {
	m := cache.Metadata{}
	require.True(t, m.IsValid())
}

func TestMetadataIsValidRespectsExpiration(t *testing.T) {
	m := cache.Metadata{ExpirationDate: time.Now().Add(-time.Hour)}
	require.False(t, m.IsValid())
}
