// Package urlutil canonicalizes URLs and decides whether two URLs share an origin.
package urlutil

import (
	"net/url"
	"strings"
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// Canonicalize returns the de-duplication key for a URL: the same URL with its
// fragment removed. Path and query are left untouched. Unparseable input is
// returned with everything from the first '#' stripped.
func Canonicalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if idx := strings.IndexByte(raw, '#'); idx >= 0 {
			return raw[:idx]
		}
		return raw
	}
	return CanonicalizeURL(u)
}

func CanonicalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

// EffectivePort returns the explicit port of u, or the scheme default when none
// is given. Unknown schemes without a port yield "".
func EffectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return defaultPorts[strings.ToLower(u.Scheme)]
}

// SameOrigin reports whether a and b share scheme, host and effective port.
// Malformed or relative URLs are never same-origin.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return SameOriginURL(ua, ub)
}

func SameOriginURL(a, b *url.URL) bool {
	if a.Scheme == "" || b.Scheme == "" || a.Hostname() == "" || b.Hostname() == "" {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		EffectivePort(a) == EffectivePort(b)
}

// Resolve resolves href against base. It returns nil for empty or malformed
// hrefs and for anything that does not resolve to an absolute URL.
func Resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(ref)
	if !resolved.IsAbs() || resolved.Host == "" {
		return nil
	}
	return resolved
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}
