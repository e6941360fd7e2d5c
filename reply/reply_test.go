package reply_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nabbar/netcore/cache"
	"github.com/nabbar/netcore/cache/memcache"
	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/middleware"
	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/stretchr/testify/require"
)

// Execute runs synchronously to completion; only the async-cancel test
// needs to run it on its own goroutine and wait for a signal.

func TestExecuteSuccessEmitsFinishedWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		_, _ = w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	req := request.New(srv.URL)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, nil, nil)
	r.Execute(context.Background())

	require.Equal(t, reply.Finished, r.State())
	require.Equal(t, 200, r.StatusCode())
	require.Equal(t, []byte("hello world"), r.ReadAll())
	v, ok := r.HeaderValue("x-test")
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestExecuteHTTPErrorSetsErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req := request.New(srv.URL)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, nil, nil)
	r.Execute(context.Background())

	require.Equal(t, reply.Error, r.State())
	require.Equal(t, liberr.CodeError(404), r.Err())
}

func TestCancelDuringRunningEmitsCancelledThenFinished(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	req := request.New(srv.URL)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, nil, nil)

	var mu sync.Mutex
	var states []reply.State
	done := make(chan struct{})
	r.OnStateChanged(func(_, n reply.State) {
		mu.Lock()
		states = append(states, n)
		mu.Unlock()
	})
	r.OnFinished(func(*reply.Reply) { close(done) })

	go r.Execute(context.Background())
	time.Sleep(20 * time.Millisecond)
	r.Cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reply did not finish in time")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, states, reply.Cancelled)
}

func TestOnlyCacheMissFinishesWithNoCacheEntry(t *testing.T) {
	req := request.New("http://example.com/x").WithCachePolicy(policy.OnlyCache)
	c := memcache.New(1024)
	r := reply.New(&http.Client{}, http.MethodGet, req, nil, c, middleware.Chain{})
	r.Execute(context.Background())

	require.Equal(t, liberr.NoCacheEntry, r.Err())
}

func TestAlwaysCacheHitSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := memcache.New(1024)
	require.Nil(t, c.Insert(srv.URL, []byte("cached"), cache.Metadata{}))

	req := request.New(srv.URL).WithCachePolicy(policy.AlwaysCache)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, c, nil)
	r.Execute(context.Background())

	require.False(t, called)
	require.Equal(t, []byte("cached"), r.ReadAll())
}

func TestPauseBeforeRunningIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("abc"))
	}))
	defer srv.Close()

	req := request.New(srv.URL)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, nil, nil)
	r.Pause() // idle: no-op, since the guard only pauses while Running
	r.Execute(context.Background())
	require.Equal(t, reply.Finished, r.State())
}
