package loop_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nabbar/netcore/loop"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/stretchr/testify/require"
)

func TestSubmitTracksActiveUntilFinished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	l := loop.New()
	defer l.Close()

	req := request.New(srv.URL)
	r := reply.New(srv.Client(), http.MethodGet, req, nil, nil, nil)

	done := make(chan struct{})
	r.OnFinished(func(*reply.Reply) { close(done) })

	l.Submit(r)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reply did not finish in time")
	}

	require.Eventually(t, func() bool { return l.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPostFuncRunsOnLoopGoroutine(t *testing.T) {
	l := loop.New()
	defer l.Close()

	done := make(chan struct{})
	l.PostFunc(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted func did not run")
	}
}
