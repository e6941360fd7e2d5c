package wspool_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	liberr "github.com/nabbar/netcore/errors"
	"github.com/nabbar/netcore/websocket"
	"github.com/nabbar/netcore/websocket/internal/wsframe"
	"github.com/nabbar/netcore/websocket/internal/wshandshake"
	"github.com/nabbar/netcore/wspool"
)

func startAcceptServer(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveOne(conn)
		}
	}()
	return ln
}

func serveOne(conn net.Conn) {
	defer conn.Close()
	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	accept := wshandshake.ExpectedAccept(req.Header.Get("Sec-WebSocket-Key"))
	resp := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: " + accept + "\r\n\r\n"
	if _, err := conn.Write([]byte(resp)); err != nil {
		return
	}
	for {
		f, err := wsframe.Read(br, 0)
		if err != nil {
			return
		}
		if f.Opcode == wsframe.OpClose {
			return
		}
		if f.Opcode == wsframe.OpPing {
			var hdr [2]byte
			hdr[0] = 0x80 | byte(wsframe.OpPong)
			hdr[1] = byte(len(f.Payload))
			conn.Write(hdr[:])
			conn.Write(f.Payload)
		}
	}
}

func wsURL(ln net.Listener) string {
	return fmt.Sprintf("ws://%s/", ln.Addr().String())
}

func TestAcquireReusesIdleSession(t *testing.T) {
	ln := startAcceptServer(t)
	defer ln.Close()

	p := wspool.New(wspool.Config{MinIdleConnections: 1, MaxIdleDuration: time.Minute})
	url := wsURL(ln)

	s1, err := p.Acquire(context.Background(), url, websocket.Config{})
	require.NoError(t, err)
	p.Release(s1)

	s2, err := p.Acquire(context.Background(), url, websocket.Config{})
	require.NoError(t, err)
	require.Same(t, s1, s2)

	stats := p.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
}

func TestAcquireRespectsPerURLCeiling(t *testing.T) {
	ln := startAcceptServer(t)
	defer ln.Close()

	p := wspool.New(wspool.Config{MaxConnectionsPerURL: 1})
	url := wsURL(ln)

	_, err := p.Acquire(context.Background(), url, websocket.Config{})
	require.NoError(t, err)

	_, err = p.Acquire(context.Background(), url, websocket.Config{})
	require.Error(t, err)

	codeErr, ok := err.(liberr.Error)
	require.True(t, ok)
	require.Equal(t, liberr.PoolLimitReached, codeErr.Code())
}

func TestReleaseMakesSessionAvailableAgain(t *testing.T) {
	ln := startAcceptServer(t)
	defer ln.Close()

	p := wspool.New(wspool.Config{MaxConnectionsPerURL: 1})
	url := wsURL(ln)

	s, err := p.Acquire(context.Background(), url, websocket.Config{})
	require.NoError(t, err)

	p.Release(s)
	s2, err := p.Acquire(context.Background(), url, websocket.Config{})
	require.NoError(t, err)
	require.Same(t, s, s2)
}
