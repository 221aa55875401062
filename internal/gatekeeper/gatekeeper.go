package gatekeeper

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var (
	ErrInvalidURL       = errors.New("invalid url")
	ErrSchemeNotAllowed = errors.New("scheme not allowed")
	ErrHostNotAllowed   = errors.New("host not allowed")
)

// Gatekeeper matches target hosts against an allow-list. An entry "shop.rs"
// and an entry "*.shop.rs" both accept shop.rs and any subdomain of it.
type Gatekeeper struct {
	suffixes []string
}

func New(entries []string) *Gatekeeper {
	g := &Gatekeeper{}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		e = strings.TrimPrefix(e, "*.")
		e = strings.TrimSuffix(e, ".")
		if e == "" {
			continue
		}
		g.suffixes = append(g.suffixes, e)
	}
	return g
}

func (g *Gatekeeper) AllowHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return false
	}
	for _, s := range g.suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether err came from Check, possibly wrapped.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrHostNotAllowed) ||
		errors.Is(err, ErrSchemeNotAllowed) ||
		errors.Is(err, ErrInvalidURL)
}

// Check parses raw and returns the URL when it may be fetched.
func (g *Gatekeeper) Check(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrSchemeNotAllowed
	}
	if u.User != nil {
		return nil, ErrInvalidURL
	}

	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return nil, ErrHostNotAllowed
	}
	if !g.AllowHost(host) {
		return nil, ErrHostNotAllowed
	}
	return u, nil
}
