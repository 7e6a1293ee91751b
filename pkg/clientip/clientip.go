// Package clientip resolves the originating client address of an HTTP
// request, looking through the usual proxy headers before falling back to
// the connection's remote address.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP. X-Forwarded-For wins (first valid
// entry), then X-Real-IP, then RemoteAddr. Invalid header values are
// skipped rather than trusted.
func FromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for _, ip := range strings.Split(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}

	if parsed := parseIP(r.Header.Get("X-Real-IP")); parsed != "" {
		return parsed
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
