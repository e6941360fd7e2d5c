// Package websocket implements a client-side WebSocket session per
// §4.11: handshake, RFC 6455 framing, ping/pong, permessage-deflate,
// and auto-reconnect. Framing and handshake are hand-rolled in
// internal/wsframe and internal/wshandshake, adapted from
// momentics-hioload-ws/protocol since no WebSocket library exists
// anywhere in the retrieval pack.
package websocket

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/netcore/event"
	"github.com/nabbar/netcore/logger"
	"github.com/nabbar/netcore/websocket/internal/wsframe"
)

// TextMessage is the payload delivered to an OnTextMessageReceived
// subscriber.
type TextMessage struct {
	Session *Session
	Text    string
}

// BinaryMessage is the payload delivered to an
// OnBinaryMessageReceived subscriber.
type BinaryMessage struct {
	Session *Session
	Data    []byte
}

// ControlFrame is the payload delivered to OnPingReceived/OnPongReceived
// subscribers.
type ControlFrame struct {
	Session *Session
	Payload []byte
}

// CloseInfo is the payload delivered to an OnCloseReceived subscriber.
type CloseInfo struct {
	Session *Session
	Code    int
	Reason  string
}

// StateTransition is the payload delivered to an OnStateChanged
// subscriber.
type StateTransition struct {
	Session  *Session
	Previous State
	Current  State
}

// ReconnectEvent is the payload delivered to an OnReconnectAttempt
// subscriber, per §4.11's reconnectAttempt(attempt, closeCode) signal.
type ReconnectEvent struct {
	Session   *Session
	Attempt   int
	CloseCode int
}

// Session is a single client WebSocket connection. The zero value is
// not usable; construct with New. Every signal named in §4.5/§4.11 is
// an event.Bus rather than a bespoke callback slice, since a session
// carries more distinct signals than the handful reply.Reply needs.
type Session struct {
	mu  sync.Mutex
	url string
	cfg Config
	id  uuid.UUID

	state State
	conn  dialResult

	compressionNegotiated bool
	stats                 CompressionStats

	reconnectAttempt int
	closedByUser     bool

	log *logger.Logger

	connected           event.Bus[*Session]
	textMessage         event.Bus[TextMessage]
	binaryMessage       event.Bus[BinaryMessage]
	pingReceived        event.Bus[ControlFrame]
	pongReceived        event.Bus[ControlFrame]
	closeReceived       event.Bus[CloseInfo]
	stateChanged        event.Bus[StateTransition]
	reconnectAttemptBus event.Bus[ReconnectEvent]

	pingStop chan struct{}
	readDone chan struct{}
}

// New builds a Session for rawURL (ws:// or wss://) with cfg. Open
// must be called to connect.
func New(rawURL string, cfg Config) *Session {
	return &Session{
		url:   rawURL,
		cfg:   cfg,
		id:    uuid.New(),
		state: Unconnected,
	}
}

// ID returns this Session's correlation id, used in log entries.
func (s *Session) ID() string { return s.id.String() }

// SetLogger attaches a logger used for handshake/reconnect/error
// diagnostics; nil disables logging.
func (s *Session) SetLogger(l *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = l
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsCompressionNegotiated reports whether the server accepted the
// permessage-deflate offer.
func (s *Session) IsCompressionNegotiated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compressionNegotiated
}

// Stats returns a snapshot of the compression byte counters.
func (s *Session) Stats() Snapshot {
	return s.stats.Snapshot()
}

func (s *Session) setState(new State) {
	s.mu.Lock()
	old := s.state
	s.state = new
	s.mu.Unlock()

	if old == new {
		return
	}
	s.stateChanged.Publish(StateTransition{Session: s, Previous: old, Current: new})
}

func (s *Session) logf(level string, msg string, fields map[string]interface{}) {
	s.mu.Lock()
	l := s.log
	s.mu.Unlock()
	if l == nil {
		return
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["session"] = s.id.String()
	switch level {
	case "debug":
		l.Debug(msg, fields)
	case "warn":
		l.Warn(msg, fields)
	case "error":
		l.Error(msg, fields)
	default:
		l.Info(msg, fields)
	}
}

// Open performs the handshake and, on success, transitions to
// Connected and starts the receive loop. On handshake failure the
// session transitions directly to Closed, per §4.11.
func (s *Session) Open(ctx context.Context) error {
	s.setState(Connecting)

	dctx := ctx
	if s.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
		defer cancel()
	}

	res, err := dial(dctx, s.url, s.cfg)
	if err != nil {
		s.logf("error", "websocket: handshake failed", map[string]interface{}{"url": s.url, "error": err.Error()})
		s.setState(Closed)
		return err
	}

	s.mu.Lock()
	s.conn = res
	s.compressionNegotiated = res.deflateNegotiated
	s.closedByUser = false
	s.reconnectAttempt = 0
	s.readDone = make(chan struct{})
	s.mu.Unlock()

	s.setState(Connected)
	s.connected.Publish(s)

	go s.readLoop()
	if s.cfg.PingInterval > 0 {
		s.startPingTimer()
	}
	return nil
}

func (s *Session) startPingTimer() {
	s.mu.Lock()
	stop := make(chan struct{})
	s.pingStop = stop
	interval := s.cfg.PingInterval
	s.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				_ = s.Ping(nil)
			}
		}
	}()
}

func (s *Session) stopPingTimer() {
	s.mu.Lock()
	stop := s.pingStop
	s.pingStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// SendTextMessage sends payload as a single text frame, compressed
// with permessage-deflate if negotiated, per §4.11's sending rules.
func (s *Session) SendTextMessage(payload string) error {
	return s.sendMessage(wsframe.OpText, []byte(payload))
}

// SendBinaryMessage sends payload as a single binary frame.
func (s *Session) SendBinaryMessage(payload []byte) error {
	return s.sendMessage(wsframe.OpBinary, payload)
}

func (s *Session) sendMessage(op wsframe.Opcode, payload []byte) error {
	s.mu.Lock()
	conn := s.conn.conn
	negotiated := s.compressionNegotiated
	level := s.cfg.CompressionLevel
	s.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("websocket: session not connected")
	}

	frame := wsframe.Frame{Fin: true, Opcode: op, Payload: payload}
	rawLen := len(payload)
	if negotiated {
		compressed, err := deflateMessage(payload, level)
		if err != nil {
			return err
		}
		frame.Payload = compressed
		frame.RSV1 = true
	}

	if err := wsframe.Write(conn, frame); err != nil {
		return fmt.Errorf("websocket: send frame: %w", err)
	}
	s.stats.addSent(rawLen, len(frame.Payload))
	return nil
}

// Ping sends a ping control frame; payload must be ≤125 bytes.
func (s *Session) Ping(payload []byte) error {
	return s.sendControl(wsframe.OpPing, payload)
}

// Pong sends a pong control frame, normally automatic unless
// Config.NoAutoPong is set.
func (s *Session) Pong(payload []byte) error {
	return s.sendControl(wsframe.OpPong, payload)
}

func (s *Session) sendControl(op wsframe.Opcode, payload []byte) error {
	s.mu.Lock()
	conn := s.conn.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket: session not connected")
	}
	return wsframe.Write(conn, wsframe.Frame{Fin: true, Opcode: op, Payload: payload})
}

// Close begins the close handshake: sends a Close frame carrying code
// and reason, then tears down the connection without auto-reconnect.
func (s *Session) Close(code int, reason string) error {
	s.mu.Lock()
	conn := s.conn.conn
	s.closedByUser = true
	s.mu.Unlock()

	s.setState(Closing)
	s.stopPingTimer()

	if conn != nil {
		payload := make([]byte, 2+len(reason))
		binary.BigEndian.PutUint16(payload, uint16(code))
		copy(payload[2:], reason)
		_ = wsframe.Write(conn, wsframe.Frame{Fin: true, Opcode: wsframe.OpClose, Payload: payload})
		_ = conn.Close()
	}

	s.setState(Closed)
	return nil
}

// OnConnected registers a callback fired once the handshake succeeds
// and the session transitions to Connected.
func (s *Session) OnConnected(cb func(*Session)) {
	s.connected.Subscribe(cb)
}

// OnTextMessageReceived registers a callback for complete text
// messages (after reassembly and, if negotiated, decompression).
func (s *Session) OnTextMessageReceived(cb func(*Session, string)) {
	s.textMessage.Subscribe(func(m TextMessage) { cb(m.Session, m.Text) })
}

// OnBinaryMessageReceived registers a callback for complete binary messages.
func (s *Session) OnBinaryMessageReceived(cb func(*Session, []byte)) {
	s.binaryMessage.Subscribe(func(m BinaryMessage) { cb(m.Session, m.Data) })
}

// OnPingReceived registers a callback for inbound ping frames. When
// Config.NoAutoPong is set, the application is expected to call Pong
// from this handler.
func (s *Session) OnPingReceived(cb func(*Session, []byte)) {
	s.pingReceived.Subscribe(func(c ControlFrame) { cb(c.Session, c.Payload) })
}

// OnPongReceived registers a callback for inbound pong frames.
func (s *Session) OnPongReceived(cb func(*Session, []byte)) {
	s.pongReceived.Subscribe(func(c ControlFrame) { cb(c.Session, c.Payload) })
}

// OnCloseReceived registers a callback fired when a Close frame
// arrives, with the parsed code and reason.
func (s *Session) OnCloseReceived(cb func(*Session, int, string)) {
	s.closeReceived.Subscribe(func(c CloseInfo) { cb(c.Session, c.Code, c.Reason) })
}

// OnStateChanged registers a callback fired on every state transition.
func (s *Session) OnStateChanged(cb func(*Session, State, State)) {
	s.stateChanged.Subscribe(func(t StateTransition) { cb(t.Session, t.Previous, t.Current) })
}

// OnReconnectAttempt registers a callback fired before each
// auto-reconnect attempt, with the attempt number and the close code
// that triggered it.
func (s *Session) OnReconnectAttempt(cb func(*Session, int, int)) {
	s.reconnectAttemptBus.Subscribe(func(e ReconnectEvent) { cb(e.Session, e.Attempt, e.CloseCode) })
}
