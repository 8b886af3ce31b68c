package flux

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPExtractor is a function to extract IP address from http.Request.
// Set appropriate one to ServerOptions.IPExtractor.
type IPExtractor func(*http.Request) string

// ParseIPExtractor returns the extractor registered under name:
// "direct" (the default), "x-real-ip" or "x-forwarded-for".
func ParseIPExtractor(name string) (IPExtractor, error) {
	switch strings.ToLower(name) {
	case "", "direct":
		return ExtractIPDirect(), nil
	case "x-real-ip":
		return ExtractIPFromRealIPHeader(), nil
	case "x-forwarded-for":
		return ExtractIPFromXFFHeader(), nil
	}
	return nil, fmt.Errorf("unknown ip extractor %q", name)
}

// ExtractIPDirect extracts IP address using actual IP address.
// Use this if server is directly exposed to the internet (i.e.: uses no proxy).
func ExtractIPDirect() IPExtractor {
	return remoteIP
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// trimIP strips whitespace and IPv6 brackets, returning "" if s is not an ip.
func trimIP(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if net.ParseIP(s) == nil {
		return ""
	}
	return s
}

// ExtractIPFromRealIPHeader extracts IP address using x-real-ip header.
// Use this if you use a proxy that uses this header.
func ExtractIPFromRealIPHeader() IPExtractor {
	return func(r *http.Request) string {
		if ip := trimIP(r.Header.Get(HeaderXRealIP)); ip != "" {
			return ip
		}
		return remoteIP(r)
	}
}

// ExtractIPFromXFFHeader extracts IP address using x-forwarded-for header.
// Use this if you use a proxy that uses this header.
// If every hop parses, the furthest one (XFF[0]) is returned.
func ExtractIPFromXFFHeader() IPExtractor {
	return func(r *http.Request) string {
		direct := remoteIP(r)
		xffs := r.Header.Values(HeaderXForwardedFor)
		if len(xffs) == 0 {
			return direct
		}
		hops := strings.Split(strings.Join(xffs, ","), ",")
		for _, hop := range hops {
			if trimIP(hop) == "" {
				return direct
			}
		}
		return trimIP(hops[0])
	}
}
