package websocket

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"

	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/websocket/internal/wshandshake"
)

// bufConn wraps a net.Conn whose first reads must come from a
// bufio.Reader that may already hold bytes buffered past the HTTP
// Upgrade response (the server's first WebSocket frame, if it wrote
// one immediately after the 101 response). Every later frame read
// goes through the same buffered reader so nothing is dropped.
type bufConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufConn) Read(p []byte) (int, error) {
	return c.br.Read(p)
}

// dialTLSConfig builds a *tls.Config from a policy.SSL the same way
// reply.applySSL configures an *http.Transport, since a raw WebSocket
// dial has no http.Transport to delegate to.
func dialTLSConfig(s policy.SSL) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: !s.VerifyPeer, //nolint:gosec // explicit opt-out per request config
	}

	if s.CACertPath != "" {
		pem, err := os.ReadFile(s.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("websocket: read CA cert %s: %w", s.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("websocket: no certificates parsed from %s", s.CACertPath)
		}
		cfg.RootCAs = pool
	}

	if s.ClientCert != "" && s.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(s.ClientCert, s.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("websocket: load client keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if !s.VerifyHost {
		cfg.InsecureSkipVerify = true
	}

	return cfg, nil
}

// dialResult carries everything Open needs to start driving the
// connection after a successful handshake.
type dialResult struct {
	conn              net.Conn
	deflateNegotiated bool
}

// dial performs steps one through the handshake of §4.11's Open:
// establish the transport connection (TLS if wss), build and send the
// Upgrade request with the permessage-deflate offer if configured,
// and verify the 101 response.
func dial(ctx context.Context, rawURL string, cfg Config) (dialResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return dialResult{}, fmt.Errorf("websocket: parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return dialResult{}, fmt.Errorf("websocket: unsupported scheme %q", u.Scheme)
	}

	addr := u.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		if u.Scheme == "wss" {
			addr = net.JoinHostPort(addr, "443")
		} else {
			addr = net.JoinHostPort(addr, "80")
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return dialResult{}, fmt.Errorf("websocket: dial %s: %w", addr, err)
	}

	if u.Scheme == "wss" {
		tlsCfg, err := dialTLSConfig(cfg.SSL)
		if err != nil {
			conn.Close()
			return dialResult{}, err
		}
		tlsCfg.ServerName = u.Hostname()
		tc := tls.Client(conn, tlsCfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			conn.Close()
			return dialResult{}, fmt.Errorf("websocket: tls handshake: %w", err)
		}
		conn = tc
	}

	extensions := ""
	if cfg.CompressionEnabled {
		extensions = "permessage-deflate; client_max_window_bits"
	}

	req, key, err := wshandshake.BuildUpgradeRequest(u, cfg.ExtraHeaders, extensions)
	if err != nil {
		conn.Close()
		return dialResult{}, err
	}
	if err := req.Write(conn); err != nil {
		conn.Close()
		return dialResult{}, fmt.Errorf("websocket: write upgrade request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return dialResult{}, fmt.Errorf("websocket: read upgrade response: %w", err)
	}
	defer resp.Body.Close()

	if err := wshandshake.VerifyUpgradeResponse(resp, key); err != nil {
		conn.Close()
		return dialResult{}, err
	}

	negotiated := cfg.CompressionEnabled && wshandshake.NegotiatedDeflate(resp)

	return dialResult{conn: &bufConn{Conn: conn, br: br}, deflateNegotiated: negotiated}, nil
}
