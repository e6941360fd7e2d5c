package reply

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/netcore/cache"
	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/middleware"
	"github.com/nabbar/netcore/request"
)

// Reply drives one request (and its retries) to completion and
// exposes the §4.5 public contract.
type Reply struct {
	mu sync.Mutex

	id uuid.UUID

	req    request.Request
	method string
	upload io.Reader

	client *http.Client
	cache  cache.Cache
	mw     middleware.Chain

	state   State
	attempt int

	body       bytes.Buffer
	headers    map[string]string
	rawHeaders bytes.Buffer
	statusCode int
	errCode    liberr.CodeError
	errVal     error

	paused     bool
	pauseCond  *sync.Cond
	cancelFunc context.CancelFunc
	deadBefore bool

	onReadyRead    []func(*Reply)
	onProgress     []func(received, total int64)
	onFinished     []func(*Reply)
	onError        []func(liberr.CodeError)
	onStateChanged []func(old, new State)
}

// New builds an Idle Reply for method against req, ready for Execute.
// client must be non-nil; cache and mw may be nil/empty.
func New(client *http.Client, method string, req request.Request, upload io.Reader, c cache.Cache, mw middleware.Chain) *Reply {
	r := &Reply{
		id:      uuid.New(),
		client:  client,
		method:  method,
		req:     req,
		upload:  upload,
		cache:   c,
		mw:      mw,
		headers: make(map[string]string),
	}
	r.pauseCond = sync.NewCond(&r.mu)
	return r
}

// ID returns this Reply's correlation id, stable for its lifetime and
// suitable for tying together log lines from request to completion.
func (r *Reply) ID() string {
	return r.id.String()
}

func (r *Reply) setState(s State) {
	r.mu.Lock()
	old := r.state
	r.state = s
	r.mu.Unlock()

	if old != s {
		for _, cb := range r.onStateChanged {
			cb(old, s)
		}
	}
}

func (r *Reply) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnReadyRead registers a callback fired each time new body bytes are
// appended, strictly before any Finished callback per §4.4's ordering
// guarantee.
func (r *Reply) OnReadyRead(cb func(*Reply))                { r.onReadyRead = append(r.onReadyRead, cb) }
func (r *Reply) OnProgress(cb func(received, total int64))  { r.onProgress = append(r.onProgress, cb) }
func (r *Reply) OnFinished(cb func(*Reply))                 { r.onFinished = append(r.onFinished, cb) }
func (r *Reply) OnError(cb func(liberr.CodeError))          { r.onError = append(r.onError, cb) }
func (r *Reply) OnStateChanged(cb func(old, new State))     { r.onStateChanged = append(r.onStateChanged, cb) }

// Execute starts the request. Idempotent after the first call until
// the Reply is reset by constructing a new one.
func (r *Reply) Execute(ctx context.Context) {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return
	}
	r.state = Running
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	r.mu.Unlock()

	r.setState(Running)
	r.runAttempt(ctx)
}

func (r *Reply) runAttempt(ctx context.Context) {
	if policyResult, handled := r.checkCache(); handled {
		r.finishFromCache(policyResult)
		return
	}

	req := r.mw.RunPreSend(r.req)

	hreq, herr := buildHTTPRequest(ctx, r.method, req, r.upload)
	if herr != nil {
		r.complete(liberr.InvalidRequest, herr, 0)
		return
	}

	resp, err := r.client.Do(hreq)
	if err != nil {
		if r.wasCancelledVia(ctx) {
			return
		}
		code := liberr.FromNetError(err).Code()
		r.maybeRetryOrComplete(code, err, 0)
		return
	}
	defer resp.Body.Close()

	r.mu.Lock()
	r.statusCode = resp.StatusCode
	for k, vs := range resp.Header {
		r.headers[strings.ToLower(k)] = strings.Join(vs, ", ")
		fmt.Fprintf(&r.rawHeaders, "%s: %s\r\n", k, strings.Join(vs, ", "))
	}
	r.mu.Unlock()

	total := resp.ContentLength
	var received int64

	buf := make([]byte, 32*1024)
	for {
		r.waitIfPaused()

		if r.wasCancelledVia(ctx) {
			return
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.body.Write(buf[:n])
			r.mu.Unlock()
			received += int64(n)

			for _, cb := range r.onReadyRead {
				cb(r)
			}
			for _, cb := range r.onProgress {
				cb(received, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			r.maybeRetryOrComplete(liberr.Unknown, rerr, received)
			return
		}
	}

	code := liberr.FromHTTPStatus(resp.StatusCode)
	r.maybeRetryOrComplete(code, nil, received)
}

// wasCancelledVia reports whether ctx was cancelled by Cancel() (as
// opposed to a plain timeout). Cancel() is the sole emitter of the
// Cancelled state and finished signal in that case, so callers must
// return without completing again.
func (r *Reply) wasCancelledVia(ctx context.Context) bool {
	if ctx.Err() != context.Canceled {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == Cancelled
}

func (r *Reply) waitIfPaused() {
	r.mu.Lock()
	for r.paused {
		r.pauseCond.Wait()
	}
	r.mu.Unlock()
}

// maybeRetryOrComplete applies §4.5 step 3: on a retryable error,
// schedule a delayed re-execute instead of completing.
func (r *Reply) maybeRetryOrComplete(code liberr.CodeError, cause error, received int64) {
	r.mu.Lock()
	r.attempt++
	attempt := r.attempt
	retryPolicy := r.req.Retry()
	r.mu.Unlock()

	if retryPolicy.ShouldRetry(code, attempt) {
		delay := retryPolicy.DelayForAttempt(attempt)
		r.mu.Lock()
		r.body.Reset()
		r.headers = make(map[string]string)
		r.rawHeaders.Reset()
		r.state = Idle
		r.mu.Unlock()

		time.AfterFunc(delay, func() {
			r.mu.Lock()
			if r.state != Idle {
				r.mu.Unlock()
				return
			}
			r.state = Running
			ctx, cancel := context.WithCancel(context.Background())
			r.cancelFunc = cancel
			r.mu.Unlock()
			r.setState(Running)
			r.runAttempt(ctx)
		})
		return
	}

	r.complete(code, cause, received)
}

func (r *Reply) complete(code liberr.CodeError, cause error, bytesReceived int64) {
	if fellBack := r.fallBackToCacheOnFailure(code); fellBack {
		return
	}

	r.mu.Lock()
	r.errCode = code
	r.errVal = cause
	body := r.body.Bytes()
	headers := cloneHeaders(r.headers)
	statusCode := r.statusCode
	req := r.req
	r.mu.Unlock()

	r.writeToCacheIfEligible(req, body, headers)
	r.mw.RunResponseReceived(statusCode, headers)

	if code != liberr.NoError {
		r.setState(Error)
		for _, cb := range r.onError {
			cb(code)
		}
	} else {
		r.setState(Finished)
	}
	r.emitFinished()
}

func (r *Reply) emitFinished() {
	for _, cb := range r.onFinished {
		cb(r)
	}
}

// Cancel aborts: stops the in-flight transport call, transitions to
// Cancelled, emits finished. Idempotent once Finished.
func (r *Reply) Cancel() {
	r.mu.Lock()
	if r.state.terminal() {
		r.mu.Unlock()
		return
	}
	if r.state == Idle {
		r.deadBefore = true
		r.state = Cancelled
		cancel := r.cancelFunc
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		r.setState(Cancelled)
		r.emitFinished()
		return
	}
	r.state = Cancelled
	cancel := r.cancelFunc
	r.paused = false
	r.pauseCond.Broadcast()
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.setState(Cancelled)
	r.emitFinished()
}

// Dead reports whether this Reply was cancelled before it was ever
// admitted by a scheduler, per scheduler.Runnable.
func (r *Reply) Dead() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deadBefore
}

// Start implements scheduler.Runnable: launches Execute on its own
// goroutine so the scheduler's admission loop never blocks on I/O.
func (r *Reply) Start() {
	go r.Execute(context.Background())
}

// Abort implements scheduler.Runnable.
func (r *Reply) Abort() { r.Cancel() }

// Pause suspends body delivery until Resume is called.
func (r *Reply) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Running {
		r.paused = true
		r.state = Paused
	}
}

// Resume un-suspends body delivery.
func (r *Reply) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Paused {
		r.paused = false
		r.state = Running
		r.pauseCond.Broadcast()
	}
}

// ReadAll returns and consumes the accumulated body.
func (r *Reply) ReadAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]byte(nil), r.body.Bytes()...)
	r.body.Reset()
	return out
}

// BytesAvailable reports how many unconsumed body bytes are buffered.
func (r *Reply) BytesAvailable() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Len()
}

// RawHeaders returns the accumulated "Name: Value\r\n" header block.
func (r *Reply) RawHeaders() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.rawHeaders.Bytes()...)
}

// HeaderValue looks up a response header case-insensitively.
func (r *Reply) HeaderValue(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.headers[strings.ToLower(name)]
	return v, ok
}

func (r *Reply) StatusCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusCode
}

func (r *Reply) Err() liberr.CodeError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errCode
}

func (r *Reply) ErrorString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errCode == liberr.NoError {
		return ""
	}
	if r.errVal != nil {
		return fmt.Sprintf("%s: %s", r.errCode.Message(), r.errVal.Error())
	}
	return r.errCode.Message()
}

func (r *Reply) URL() string {
	return r.req.URL()
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
