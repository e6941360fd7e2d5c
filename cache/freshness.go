package cache

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// Freshness is the outcome of parsing a response's cache headers: can
// it be stored at all, and if so, when does it expire.
type Freshness struct {
	Cacheable bool
	Expires   time.Time // zero means "no expiration"
}

// ParseFreshness implements §4.9's exact algorithm: Cache-Control
// no-store/no-cache and Pragma: no-cache veto caching outright;
// Cache-Control max-age wins over Expires; Expires is parsed as an
// RFC 2822/1123 date; absent both, the entry never expires.
func ParseFreshness(headers map[string]string) Freshness {
	if pragma, ok := lookupHeader(headers, "Pragma"); ok && hasToken(pragma, "no-cache") {
		return Freshness{Cacheable: false}
	}

	if cc, ok := lookupHeader(headers, "Cache-Control"); ok {
		for _, tok := range strings.Split(cc, ",") {
			tok = strings.TrimSpace(strings.ToLower(tok))
			if tok == "no-store" || tok == "no-cache" {
				return Freshness{Cacheable: false}
			}
		}
		for _, tok := range strings.Split(cc, ",") {
			tok = strings.TrimSpace(strings.ToLower(tok))
			if strings.HasPrefix(tok, "max-age=") {
				if secs, err := strconv.Atoi(strings.TrimPrefix(tok, "max-age=")); err == nil {
					return Freshness{Cacheable: true, Expires: time.Now().Add(time.Duration(secs) * time.Second)}
				}
			}
		}
	}

	if exp, ok := lookupHeader(headers, "Expires"); ok {
		if t, err := mail.ParseDate(exp); err == nil {
			return Freshness{Cacheable: true, Expires: t}
		}
		if t, err := time.Parse(time.RFC1123, exp); err == nil {
			return Freshness{Cacheable: true, Expires: t}
		}
	}

	return Freshness{Cacheable: true}
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func hasToken(value, token string) bool {
	for _, tok := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), token) {
			return true
		}
	}
	return false
}
