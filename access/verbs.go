package access

import (
	"io"
	"net/http"
	"time"

	"github.com/nabbar/netcore/reply"
	"github.com/nabbar/netcore/request"
	"github.com/nabbar/netcore/scheduler"
)

// newReply builds a Reply for method/req/upload against this Manager's
// current collaborators, the shared core of every per-verb factory.
func (m *Manager) newReply(method string, req request.Request, upload io.Reader) (*reply.Reply, error) {
	snap := m.snapshot()

	client, err := buildClientFor(snap, req)
	if err != nil {
		return nil, err
	}

	return reply.New(client, method, req, upload, snap.cache, snap.mw), nil
}

// start admits r for execution: through the Scheduler if one is
// configured (per req's priority), or as a direct fire-and-forget
// Start() otherwise. Per §4.1, factories return a Reply whose
// execution has already been started.
func (m *Manager) start(r *reply.Reply, req request.Request) {
	snap := m.snapshot()
	if snap.sch == nil {
		r.Start()
		return
	}

	startedAt := time.Now()

	// idReady closes the race between Enqueue's Start() call (which may
	// run r to completion on another goroutine immediately) and this
	// function learning the admission ticket's id: the callback blocks
	// on it instead of reading a variable that might not be set yet.
	idReady := make(chan uint64, 1)
	r.OnFinished(func(fr *reply.Reply) {
		id := <-idReady
		received := int64(fr.BytesAvailable())
		cancelled := fr.State() == reply.Cancelled
		snap.sch.Complete(id, received, float64(time.Since(startedAt).Milliseconds()), cancelled)
	})

	id := snap.sch.Enqueue(&scheduler.Item{
		Host:     hostOf(req.URL()),
		Priority: req.Priority(),
		Runnable: r,
	})
	idReady <- id
}

// Get issues a GET request, started immediately per the Manager's
// admission policy.
func (m *Manager) Get(req request.Request) (*reply.Reply, error) {
	return m.do(http.MethodGet, req, nil)
}

// Post issues a POST request with the given body.
func (m *Manager) Post(req request.Request, body io.Reader) (*reply.Reply, error) {
	return m.do(http.MethodPost, req, body)
}

// Put issues a PUT request with the given body.
func (m *Manager) Put(req request.Request, body io.Reader) (*reply.Reply, error) {
	return m.do(http.MethodPut, req, body)
}

// Patch issues a PATCH request with the given body.
func (m *Manager) Patch(req request.Request, body io.Reader) (*reply.Reply, error) {
	return m.do(http.MethodPatch, req, body)
}

// Delete issues a DELETE request.
func (m *Manager) Delete(req request.Request) (*reply.Reply, error) {
	return m.do(http.MethodDelete, req, nil)
}

// Head issues a HEAD request; the body is never read by the server.
func (m *Manager) Head(req request.Request) (*reply.Reply, error) {
	return m.do(http.MethodHead, req, nil)
}

func (m *Manager) do(method string, req request.Request, body io.Reader) (*reply.Reply, error) {
	snap := m.snapshot()
	if snap.log != nil {
		snap.log.Debug("access: dispatching request", map[string]interface{}{"method": method, "url": req.URL()})
	}

	r, err := m.newReply(method, req, body)
	if err != nil {
		if snap.log != nil {
			snap.log.Error("access: failed to build request", map[string]interface{}{"method": method, "url": req.URL(), "error": err.Error()})
		}
		return nil, err
	}

	if snap.log != nil {
		r.OnFinished(func(fr *reply.Reply) {
			snap.log.Info("access: request finished", map[string]interface{}{"id": fr.ID(), "method": method, "url": req.URL(), "status": fr.StatusCode(), "state": fr.State().String()})
		})
	}

	m.start(r, req)
	return r, nil
}
