package access

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CookieMode mirrors §6's cookie jar open flags.
type CookieMode int

const (
	CookieNotOpen CookieMode = iota
	CookieReadOnly
	CookieWriteOnly
	CookieReadWrite
)

func (m CookieMode) canRead() bool  { return m == CookieReadOnly || m == CookieReadWrite }
func (m CookieMode) canWrite() bool { return m == CookieWriteOnly || m == CookieReadWrite }

// netscapeJar is an http.CookieJar backed by the stdlib
// net/http/cookiejar.Jar for matching/expiry, with a Netscape
// cookies.txt reader/writer layered on top: no cookiejar library in
// the retrieval pack understands that on-disk format (see DESIGN.md),
// so the format itself is hand-rolled here while all cookie-matching
// semantics stay delegated to net/http/cookiejar.
type netscapeJar struct {
	mu   sync.Mutex
	jar  *cookiejar.Jar
	seen map[string]*url.URL
}

func newNetscapeJar() (*netscapeJar, error) {
	j, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &netscapeJar{jar: j, seen: make(map[string]*url.URL)}, nil
}

func (n *netscapeJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	n.jar.SetCookies(u, cookies)
	n.mu.Lock()
	n.seen[u.Scheme+"://"+u.Host] = u
	n.mu.Unlock()
}

func (n *netscapeJar) Cookies(u *url.URL) []*http.Cookie {
	return n.jar.Cookies(u)
}

// newCookieJar builds the jar for path/mode. A ReadOnly/ReadWrite jar
// is preloaded from an existing Netscape file; a missing file is not
// an error, per §6 ("applications may set a cookie file path").
func newCookieJar(path string, mode CookieMode) (*netscapeJar, error) {
	nj, err := newNetscapeJar()
	if err != nil {
		return nil, err
	}
	if path == "" || !mode.canRead() {
		return nj, nil
	}
	if err := nj.load(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return nj, nil
}

func (n *netscapeJar) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	byURL := make(map[string][]*http.Cookie)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		domain, path, secureFlag, expiresField, name, value := fields[0], fields[2], fields[3], fields[4], fields[5], fields[6]
		expires, _ := strconv.ParseInt(expiresField, 10, 64)

		scheme := "http"
		if secureFlag == "TRUE" {
			scheme = "https"
		}
		host := strings.TrimPrefix(domain, ".")
		key := scheme + "://" + host

		c := &http.Cookie{Name: name, Value: value, Path: path, Domain: domain, Secure: secureFlag == "TRUE"}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		byURL[key] = append(byURL[key], c)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	for raw, cookies := range byURL {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		n.jar.SetCookies(u, cookies)
		n.seen[raw] = u
	}
	return nil
}

// save writes every cookie this jar has ever seen a SetCookies call
// for, in Netscape cookies.txt format.
func (n *netscapeJar) save(path string) error {
	n.mu.Lock()
	urls := make([]*url.URL, 0, len(n.seen))
	for _, u := range n.seen {
		urls = append(urls, u)
	}
	n.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Netscape HTTP Cookie File")

	for _, u := range urls {
		for _, c := range n.jar.Cookies(u) {
			domain := c.Domain
			if domain == "" {
				domain = u.Hostname()
			}
			cpath := c.Path
			if cpath == "" {
				cpath = "/"
			}
			secure := "FALSE"
			if c.Secure {
				secure = "TRUE"
			}
			var expires int64
			if !c.Expires.IsZero() {
				expires = c.Expires.Unix()
			}
			fmt.Fprintf(w, "%s\tTRUE\t%s\t%s\t%d\t%s\t%s\n", domain, cpath, secure, expires, c.Name, c.Value)
		}
	}
	return w.Flush()
}
