package reply

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/nabbar/netcore/connpool"
	"github.com/nabbar/netcore/policy"
	"github.com/nabbar/netcore/request"
)

// BuildClient implements §4.5's configuration steps 3-9 for the parts
// that live at the transport level in net/http (TLS, proxy, HTTP
// version, timeouts, connection pooling): Go has no per-request
// TLS/proxy knob, so a dedicated *http.Client with its own
// *http.Transport is built on every call; nothing caches or reuses it.
// Of the timeouts, Connect becomes the dialer timeout and Total the
// client timeout; the low-speed fields are not applied.
func BuildClient(req request.Request, host string, pool *connpool.Manager, jar http.CookieJar) (*http.Client, error) {
	tr := &http.Transport{}

	if err := applySSL(tr, req.SSL()); err != nil {
		return nil, err
	}
	applyProxy(tr, req.Proxy())
	applyVersion(tr, req.Version())

	if pool != nil {
		pool.ConfigureTransport(tr, host)
	}

	timeout := req.Timeout()
	if timeout.Connect > 0 {
		tr.DialContext = (&net.Dialer{Timeout: timeout.Connect}).DialContext
	}
	client := &http.Client{
		Transport: tr,
		Timeout:   timeout.Total,
		Jar:       jar,
	}
	if !req.FollowRedirects() {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// applySSL implements step 4: empty paths mean "use system default".
func applySSL(tr *http.Transport, s policy.SSL) error {
	cfg := &tls.Config{
		InsecureSkipVerify: !s.VerifyPeer, //nolint:gosec // explicit opt-out per request config
	}

	if s.CACertPath != "" {
		pem, err := os.ReadFile(s.CACertPath)
		if err != nil {
			return fmt.Errorf("reply: read CA cert %s: %w", s.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("reply: no certificates parsed from %s", s.CACertPath)
		}
		cfg.RootCAs = pool
	}

	if s.ClientCert != "" && s.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(s.ClientCert, s.ClientKey)
		if err != nil {
			return fmt.Errorf("reply: load client keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if !s.VerifyHost {
		cfg.InsecureSkipVerify = true
	}

	tr.TLSClientConfig = cfg
	return nil
}

// applyProxy implements step 5: invalid configs (empty host or zero
// port while Type != ProxyNone) are silently dropped.
func applyProxy(tr *http.Transport, p policy.Proxy) {
	if p.Type == policy.ProxyNone || !p.Valid() {
		return
	}

	scheme := "http"
	if p.Type == policy.ProxySOCKS5 {
		scheme = "socks5"
	} else if p.Type == policy.ProxyHTTPS {
		scheme = "https"
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	tr.Proxy = http.ProxyURL(u)
}

// applyVersion implements step 6. Go's http.Transport negotiates
// HTTP/2 via ALPN automatically; HTTP3 and HTTP3Only leave that
// default negotiation unchanged, since this module carries no QUIC
// dependency.
func applyVersion(tr *http.Transport, v policy.Version) {
	if !v.Explicit {
		return
	}
	switch v.Preference {
	case policy.HTTP1Only:
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	case policy.HTTP2TLS:
		tr.ForceAttemptHTTP2 = true
	default:
	}
}
