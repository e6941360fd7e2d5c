package websocket

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/nabbar/netcore/websocket/internal/wsframe"
)

// readLoop implements §4.11's Receiving paragraph: read frames,
// reassemble fragments keyed by the originating frame's type, and on
// the final frame of a message decompress (if RSV1 was set) and emit
// the matching signal. Control frames are handled inline regardless
// of fragmentation state. On disconnect it evaluates the reconnect
// policy.
func (s *Session) readLoop() {
	s.mu.Lock()
	conn := s.conn.conn
	maxPayload := s.cfg.MaxFramePayload
	done := s.readDone
	s.mu.Unlock()

	var (
		acc     []byte
		accOp   wsframe.Opcode
		accRSV1 bool
		inMsg   bool
	)

	closeCode := 1006
	closeReason := ""

	for {
		f, err := wsframe.Read(conn, maxPayload)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logf("debug", "websocket: read loop ended", map[string]interface{}{"error": err.Error()})
			}
			break
		}

		switch f.Opcode {
		case wsframe.OpPing:
			s.emitPing(f.Payload)
			continue
		case wsframe.OpPong:
			s.emitPong(f.Payload)
			continue
		case wsframe.OpClose:
			closeCode, closeReason = parseCloseFrame(f.Payload)
			s.emitClose(closeCode, closeReason)
			goto disconnected
		}

		if !inMsg {
			accOp = f.Opcode
			accRSV1 = f.RSV1
			acc = acc[:0]
			inMsg = true
		}
		acc = append(acc, f.Payload...)

		if f.Fin {
			s.deliverMessage(accOp, accRSV1, acc)
			inMsg = false
			acc = nil
		}
	}

disconnected:
	close(done)
	s.stopPingTimer()
	s.handleDisconnect(closeCode, closeReason)
}

func (s *Session) deliverMessage(op wsframe.Opcode, rsv1 bool, payload []byte) {
	raw := payload
	if rsv1 {
		inflated, err := inflateMessage(payload)
		if err != nil {
			s.logf("warn", "websocket: inflate failed", map[string]interface{}{"error": err.Error()})
			return
		}
		raw = inflated
	}
	s.stats.addReceived(len(raw), len(payload))

	switch op {
	case wsframe.OpText:
		s.textMessage.Publish(TextMessage{Session: s, Text: string(raw)})
	case wsframe.OpBinary:
		s.binaryMessage.Publish(BinaryMessage{Session: s, Data: raw})
	}
}

func (s *Session) emitPing(payload []byte) {
	s.mu.Lock()
	autoPong := !s.cfg.NoAutoPong
	s.mu.Unlock()

	s.pingReceived.Publish(ControlFrame{Session: s, Payload: payload})
	if autoPong {
		_ = s.Pong(payload)
	}
}

func (s *Session) emitPong(payload []byte) {
	s.pongReceived.Publish(ControlFrame{Session: s, Payload: payload})
}

func (s *Session) emitClose(code int, reason string) {
	s.closeReceived.Publish(CloseInfo{Session: s, Code: code, Reason: reason})
}

func parseCloseFrame(payload []byte) (int, string) {
	if len(payload) < 2 {
		return 1005, ""
	}
	return int(binary.BigEndian.Uint16(payload)), string(payload[2:])
}

// handleDisconnect implements §4.11's auto-reconnect: evaluate the
// policy, and if it says retry, wait delayForAttempt and re-open.
func (s *Session) handleDisconnect(closeCode int, closeReason string) {
	s.mu.Lock()
	userInitiated := s.closedByUser
	s.mu.Unlock()

	s.setState(Closed)
	if userInitiated {
		return
	}

	s.mu.Lock()
	s.reconnectAttempt++
	attempt := s.reconnectAttempt
	policy := s.cfg.reconnectPolicy()
	s.mu.Unlock()

	if !policy.ShouldRetry(closeCode, attempt) {
		return
	}

	s.reconnectAttemptBus.Publish(ReconnectEvent{Session: s, Attempt: attempt, CloseCode: closeCode})

	delay := policy.DelayForAttempt(attempt)
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		_ = s.Open(context.Background())
	}()

	_ = closeReason
}
