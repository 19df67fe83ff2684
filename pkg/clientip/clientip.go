// Package clientip resolves the caller address behind the load balancer.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP, preferring CF-Connecting-IP, then the
// first valid X-Forwarded-For entry, then X-Real-IP, then RemoteAddr. It
// returns "" when none holds a valid address.
func FromRequest(r *http.Request) string {
	if ip := parse(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := parse(candidate); ip != "" {
			return ip
		}
	}
	if ip := parse(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parse(r.RemoteAddr)
	}
	return parse(host)
}

func parse(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}
