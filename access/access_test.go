package access_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nabbar/netcore/access"
	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/middleware"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/nabbar/netcore/scheduler"
	"github.com/stretchr/testify/require"
)

func waitFinished(t *testing.T, r *reply.Reply) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.State() == reply.Finished || r.State() == reply.Error || r.State() == reply.Cancelled
	}, time.Second, 2*time.Millisecond)
}

func TestGetRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	r, err := m.Get(request.New(srv.URL))
	require.NoError(t, err)
	waitFinished(t, r)

	require.Equal(t, reply.Finished, r.State())
	require.Equal(t, []byte("hello"), r.ReadAll())
}

func TestPostJSONSetsContentType(t *testing.T) {
	var gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	r, err := m.PostJSON(request.New(srv.URL), map[string]int{"n": 1})
	require.NoError(t, err)
	waitFinished(t, r)

	require.Equal(t, "application/json", gotContentType)
	require.JSONEq(t, `{"n":1}`, gotBody)
}

func TestPostFormEncodesValues(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	r, err := m.PostForm(request.New(srv.URL), url.Values{"a": {"1"}})
	require.NoError(t, err)
	waitFinished(t, r)

	require.Equal(t, "a=1", gotBody)
}

func TestPostMultipartIncludesFile(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	r, err := m.PostMultipart(request.New(srv.URL), map[string]string{"field": "value"},
		[]access.MultipartFile{{FieldName: "file", FileName: "a.txt", Content: bytes.NewReader([]byte("payload"))}})
	require.NoError(t, err)
	waitFinished(t, r)

	require.Contains(t, gotContentType, "multipart/form-data")
	require.Contains(t, string(gotBody), "payload")
}

func TestDownloadToStreamsIntoDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("streamed bytes"))
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	var buf bytes.Buffer
	r, err := m.DownloadTo(request.New(srv.URL), &buf)
	require.NoError(t, err)
	waitFinished(t, r)

	require.Equal(t, "streamed bytes", buf.String())
}

func TestDownloadResumableSendsRangeHeaderAndAppends(t *testing.T) {
	full := []byte("0123456789ABCDEF")
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		if gotRange == "" {
			_, _ = w.Write(full)
			return
		}
		w.Header().Set("Content-Range", "bytes 8-15/16")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(full[8:])
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "download.bin")
	require.NoError(t, os.WriteFile(path, full[:8], 0o644))

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	r, err := m.DownloadResumable(request.New(srv.URL), path, false)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, "bytes=8-", gotRange)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, full, got)
}

func TestDownloadResumableFailsWhenServerIgnoresRange(t *testing.T) {
	full := []byte("0123456789ABCDEF")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(full)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "download.bin")
	require.NoError(t, os.WriteFile(path, full[:8], 0o644))

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	_, err = m.DownloadResumable(request.New(srv.URL), path, false)
	require.NotNil(t, err)

	codeErr, ok := err.(liberr.Error)
	require.True(t, ok)
	require.Equal(t, liberr.RangeNotSatisfied, codeErr.Code())
}

func TestMockHandlerInterceptsBeforeNetwork(t *testing.T) {
	networkHit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		networkHit = true
	}))
	defer srv.Close()

	m, err := access.New(access.Config{})
	require.NoError(t, err)

	mock := middleware.NewMockHandler()
	mock.RegisterResponse(srv.URL, middleware.MockResponse{StatusCode: 200, Body: []byte("mocked")})
	m.SetMockHandler(mock)

	r, err := m.Get(request.New(srv.URL))
	require.NoError(t, err)
	waitFinished(t, r)

	require.False(t, networkHit)
	require.Equal(t, []byte("mocked"), r.ReadAll())
}

func TestSchedulerEnabledAdmitsAndCompletes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m, err := access.New(access.Config{
		SchedulerEnabled: true,
		SchedulerConfig:  scheduler.Config{MaxConcurrentRequests: 2},
	})
	require.NoError(t, err)
	defer m.Close()

	r, err := m.Get(request.New(srv.URL))
	require.NoError(t, err)
	waitFinished(t, r)

	require.Eventually(t, func() bool {
		return m.Scheduler().Stats().Completed == 1
	}, time.Second, 2*time.Millisecond)
}

func TestCookieJarSavedToFileOnClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123", Path: "/"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	jarPath := filepath.Join(dir, "cookies.txt")

	m1, err := access.New(access.Config{CookieJarPath: jarPath, CookieMode: access.CookieReadWrite})
	require.NoError(t, err)

	r, err := m1.Get(request.New(srv.URL))
	require.NoError(t, err)
	waitFinished(t, r)
	require.NoError(t, m1.Close())

	data, err := os.ReadFile(jarPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "sid")
	require.Contains(t, string(data), "abc123")
}
