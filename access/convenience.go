package access

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
)

// PostJSON marshals body as JSON, sets Content-Type, and posts it.
func (m *Manager) PostJSON(req request.Request, body interface{}) (*reply.Reply, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("access: marshal json body: %w", err)
	}
	req = req.WithHeader("Content-Type", "application/json")
	return m.Post(req, bytes.NewReader(raw))
}

// PostForm url-encodes values as the body of a POST with
// application/x-www-form-urlencoded Content-Type.
func (m *Manager) PostForm(req request.Request, values url.Values) (*reply.Reply, error) {
	req = req.WithHeader("Content-Type", "application/x-www-form-urlencoded")
	return m.Post(req, bytes.NewReader([]byte(values.Encode())))
}

// MultipartFile is one file part of a PostMultipart call.
type MultipartFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// PostMultipart builds a multipart/form-data body from fields and
// files and posts it.
func (m *Manager) PostMultipart(req request.Request, fields map[string]string, files []MultipartFile) (*reply.Reply, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("access: write multipart field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.FieldName, f.FileName)
		if err != nil {
			return nil, fmt.Errorf("access: create multipart file %s: %w", f.FieldName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("access: write multipart file %s: %w", f.FieldName, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("access: close multipart writer: %w", err)
	}

	req = req.WithHeader("Content-Type", w.FormDataContentType())
	return m.Post(req, &buf)
}

// DownloadTo issues a GET and streams every received chunk into
// device as it arrives, per §4.1's streaming semantics: device is
// owned by the caller, and cancelling the returned Reply only closes
// the write side, never device itself.
func (m *Manager) DownloadTo(req request.Request, device io.Writer) (*reply.Reply, error) {
	r, err := m.newReply(http.MethodGet, req, nil)
	if err != nil {
		return nil, err
	}

	var writeErr error
	r.OnReadyRead(func(fr *reply.Reply) {
		if writeErr != nil {
			return
		}
		if _, err := device.Write(fr.ReadAll()); err != nil {
			writeErr = err
			fr.Cancel()
		}
	})

	m.start(r, req)
	return r, nil
}

// UploadFrom issues method with device as the request body, streaming
// it without buffering the whole thing in memory first.
func (m *Manager) UploadFrom(method string, req request.Request, device io.Reader) (*reply.Reply, error) {
	return m.do(method, req, device)
}

// DownloadResumable implements §4.1's exact resume semantics: if path
// exists and overwrite is false, its current length becomes the resume
// offset and the request is sent with Range: bytes=<offset>-. If the
// server does not honor the range (no Content-Range in the response),
// this returns liberr.RangeNotSatisfied instead of silently
// overwriting the file; the caller is expected to delete path and
// retry from zero.
func (m *Manager) DownloadResumable(req request.Request, path string, overwrite bool) (*reply.Reply, error) {
	var offset int64
	if !overwrite {
		if fi, err := os.Stat(path); err == nil {
			offset = fi.Size()
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("access: open %s for resumable download: %w", path, err)
	}
	defer f.Close()

	if offset > 0 {
		req = req.WithHeader("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	r, err := m.newReply(http.MethodGet, req, nil)
	if err != nil {
		return nil, err
	}

	r.OnReadyRead(func(fr *reply.Reply) {
		_, _ = f.Write(fr.ReadAll())
	})

	r.Execute(context.Background())

	if offset > 0 {
		if _, ok := r.HeaderValue("Content-Range"); !ok && r.StatusCode() != 0 {
			return r, liberr.RangeNotSatisfied.Error(fmt.Errorf("access: server ignored Range header for %s", req.URL()))
		}
	}
	return r, nil
}
