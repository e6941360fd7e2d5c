package websocket_test

import (
	"bufio"
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/netcore/websocket"
	"github.com/nabbar/netcore/websocket/internal/wsframe"
	"github.com/nabbar/netcore/websocket/internal/wshandshake"
)

// writeServerFrame writes an unmasked frame, the direction server ->
// client always uses. wsframe.Write is client-only (always masks), so
// this tiny helper stands in for a server the module itself never
// implements (becoming a server is an explicit non-goal).
func writeServerFrame(w io.Writer, opcode wsframe.Opcode, payload []byte, rsv1 bool) error {
	var b0 byte = 0x80 | byte(opcode)
	if rsv1 {
		b0 |= 0x40
	}
	n := len(payload)
	var header []byte
	switch {
	case n <= 125:
		header = []byte{b0, byte(n)}
	case n <= 0xFFFF:
		header = make([]byte, 4)
		header[0] = b0
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:], uint16(n))
	default:
		header = make([]byte, 10)
		header[0] = b0
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:], uint64(n))
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

type echoServer struct {
	ln           net.Listener
	offerDeflate bool
}

func startEchoServer(t *testing.T, offerDeflate bool) *echoServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &echoServer{ln: ln, offerDeflate: offerDeflate}
	go srv.acceptLoop(t)
	return srv
}

func (e *echoServer) url() string {
	return fmt.Sprintf("ws://%s/", e.ln.Addr().String())
}

func (e *echoServer) acceptLoop(t *testing.T) {
	conn, err := e.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	key := req.Header.Get("Sec-WebSocket-Key")
	accept := wshandshake.ExpectedAccept(key)

	negotiate := e.offerDeflate && req.Header.Get("Sec-WebSocket-Extensions") != ""

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n"
	if negotiate {
		resp += "Sec-WebSocket-Extensions: permessage-deflate\r\n"
	}
	resp += "\r\n"
	if _, err := conn.Write([]byte(resp)); err != nil {
		return
	}

	for {
		f, err := wsframe.Read(br, 0)
		if err != nil {
			return
		}
		switch f.Opcode {
		case wsframe.OpClose:
			_ = writeServerFrame(conn, wsframe.OpClose, f.Payload, false)
			return
		case wsframe.OpPing:
			_ = writeServerFrame(conn, wsframe.OpPong, f.Payload, false)
		case wsframe.OpText, wsframe.OpBinary:
			if f.RSV1 {
				raw, err := inflateForTest(f.Payload)
				if err != nil {
					return
				}
				compressed, err := deflateForTest(raw)
				if err != nil {
					return
				}
				_ = writeServerFrame(conn, f.Opcode, compressed, true)
			} else {
				_ = writeServerFrame(conn, f.Opcode, f.Payload, false)
			}
		}
	}
}

func deflateForTest(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	tail := []byte{0x00, 0x00, 0xff, 0xff}
	if bytes.HasSuffix(out, tail) {
		out = out[:len(out)-len(tail)]
	}
	return out, nil
}

func inflateForTest(payload []byte) ([]byte, error) {
	tail := []byte{0x00, 0x00, 0xff, 0xff}
	r := flate.NewReader(bytes.NewReader(append(payload, tail...)))
	defer r.Close()
	return io.ReadAll(r)
}

func TestSessionOpenAndEchoText(t *testing.T) {
	srv := startEchoServer(t, false)
	defer srv.ln.Close()

	s := websocket.New(srv.url(), websocket.Config{})
	received := make(chan string, 1)
	s.OnTextMessageReceived(func(_ *websocket.Session, msg string) {
		received <- msg
	})

	require.NoError(t, s.Open(context.Background()))
	require.Equal(t, websocket.Connected, s.State())

	require.NoError(t, s.SendTextMessage("hello"))

	select {
	case msg := <-received:
		require.Equal(t, "hello", msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestSessionCompressionNegotiated(t *testing.T) {
	srv := startEchoServer(t, true)
	defer srv.ln.Close()

	s := websocket.New(srv.url(), websocket.Config{CompressionEnabled: true})
	received := make(chan string, 1)
	s.OnTextMessageReceived(func(_ *websocket.Session, msg string) {
		received <- msg
	})

	require.NoError(t, s.Open(context.Background()))
	require.True(t, s.IsCompressionNegotiated())

	payload := ""
	for i := 0; i < 500; i++ {
		payload += "aaaaaaaaaa"
	}
	require.NoError(t, s.SendTextMessage(payload))

	select {
	case msg := <-received:
		require.Equal(t, payload, msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for echo")
	}

	stats := s.Stats()
	require.Less(t, stats.SentBytesCompressed, stats.SentBytesRaw)
}

func TestSessionPingPong(t *testing.T) {
	srv := startEchoServer(t, false)
	defer srv.ln.Close()

	s := websocket.New(srv.url(), websocket.Config{})
	pongReceived := make(chan []byte, 1)
	s.OnPongReceived(func(_ *websocket.Session, payload []byte) {
		pongReceived <- payload
	})

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Ping([]byte("ping-payload")))

	select {
	case payload := <-pongReceived:
		require.Equal(t, []byte("ping-payload"), payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pong")
	}
}

func TestSessionCloseDoesNotReconnect(t *testing.T) {
	srv := startEchoServer(t, false)
	defer srv.ln.Close()

	var stateChanges []websocket.State
	s := websocket.New(srv.url(), websocket.Config{})
	s.OnStateChanged(func(_ *websocket.Session, _ websocket.State, new websocket.State) {
		stateChanges = append(stateChanges, new)
	})

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Close(1000, "done"))

	require.Eventually(t, func() bool {
		return s.State() == websocket.Closed
	}, time.Second, 2*time.Millisecond)
}

func TestDefaultReconnectPolicyRetriesKnownCodes(t *testing.T) {
	p := websocket.NewDefaultReconnectPolicy()
	require.True(t, p.ShouldRetry(1006, 1))
	require.True(t, p.ShouldRetry(1001, 1))
	require.True(t, p.ShouldRetry(1011, 1))
	require.False(t, p.ShouldRetry(1000, 1))

	d1 := p.DelayForAttempt(1)
	d2 := p.DelayForAttempt(2)
	require.Equal(t, time.Second, d1)
	require.Equal(t, 2*time.Second, d2)
}
